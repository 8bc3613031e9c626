package trader

import (
	"context"
	"fmt"
	"time"

	boterrors "github.com/jaewoo-dev/upbit-trading-bot/internal/errors"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/executor"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/monitoring"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/risk"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/signal"
	"github.com/jaewoo-dev/upbit-trading-bot/pkg/reporting"
)

// RunTradeCycle scans the market, liquidates sell signals, then allocates
// the freed capital across buy signals. Sells are fully awaited before any
// buy is placed so the proceeds are available for allocation; buys are
// placed together and awaited as a batch.
func (t *Trader) RunTradeCycle(ctx context.Context) (*reporting.CycleReport, error) {
	start := time.Now()
	report := &reporting.CycleReport{Kind: "trade", StartedAt: start}

	snap, err := t.snapshotPortfolio(ctx)
	if err != nil {
		botErr := boterrors.CategorizeError(err, "trader", "portfolio_snapshot")
		t.log.Error().Err(botErr).Bool("retryable", botErr.IsRetryable()).
			Msg("portfolio snapshot failed")
		monitoring.RecordError(string(botErr.Category))
		monitoring.RecordCycle("trade", "error", time.Since(start).Seconds())
		t.notifyCycleFailure("trade", err)
		return nil, err
	}

	signals, err := t.scanner.Scan(ctx, snap.ownedTickers(), baseScanCount)
	if err != nil {
		botErr := boterrors.CategorizeError(err, "scanner", "scan")
		monitoring.RecordError(string(botErr.Category))
		monitoring.RecordCycle("trade", "error", time.Since(start).Seconds())
		t.notifyCycleFailure("trade", err)
		return nil, fmt.Errorf("market scan failed: %w", err)
	}

	var buys []signal.Signal
	for _, sig := range signals {
		switch sig.Action {
		case signal.ActionSell:
			if record, ok := t.executeSell(ctx, sig, snap); ok {
				report.Trades = append(report.Trades, record)
			}
		case signal.ActionBuy:
			buys = append(buys, sig)
		}
	}

	// Balances moved if anything sold; re-snapshot before allocating.
	if len(report.Trades) > 0 {
		if fresh, err := t.snapshotPortfolio(ctx); err == nil {
			snap = fresh
		} else {
			t.log.Warn().Err(err).Msg("post-sell snapshot failed, allocating from stale balances")
		}
	}
	report.PortfolioValueKRW = snap.TotalValue
	report.AvailableKRW = snap.AvailableKRW
	monitoring.UpdatePortfolioValue(snap.TotalValue)

	report.Trades = append(report.Trades, t.executeBuys(ctx, snap.AvailableKRW, buys)...)

	report.Duration = time.Since(start)
	t.console.PrintCycle(report)
	t.notifyCycleSummary(report)
	monitoring.RecordCycle("trade", "ok", report.Duration.Seconds())
	return report, nil
}

// executeSell liquidates an owned position for a sell signal and waits for
// the order to finish. Returns ok=false when the signal does not match a
// sellable holding.
func (t *Trader) executeSell(ctx context.Context, sig signal.Signal, snap *portfolio) (reporting.TradeRecord, bool) {
	var pos *risk.Position
	for i := range snap.Positions {
		if snap.Positions[i].Ticker == sig.Ticker {
			pos = &snap.Positions[i]
			break
		}
	}
	if pos == nil || pos.Free <= 0 {
		t.log.Warn().Str("ticker", sig.Ticker).Msg("sell signal without sellable balance, skipped")
		return reporting.TradeRecord{}, false
	}

	record := t.liquidate(ctx, *pos, "sell signal")
	return record, true
}

// executeBuys sizes buy signals through the allocator, places the orders,
// and awaits them as one batch under a shared deadline.
func (t *Trader) executeBuys(ctx context.Context, availableKRW float64, buys []signal.Signal) []reporting.TradeRecord {
	if len(buys) == 0 {
		return nil
	}

	allocations := t.alloc.Allocate(availableKRW, buys)
	if len(allocations) == 0 {
		t.log.Info().Msg("no allocations met the minimum order size")
		return nil
	}

	var records []reporting.TradeRecord
	pending := make(map[string]int) // order ID to index in records
	var orderIDs []string

	for _, sig := range buys {
		amount, ok := allocations[sig.Ticker]
		if !ok {
			continue
		}

		record := reporting.TradeRecord{Ticker: sig.Ticker, Side: "buy", Reason: "buy signal"}
		outcome := t.exec.Buy(ctx, sig.Ticker, amount)
		switch o := outcome.(type) {
		case executor.Failed:
			botErr := orderFailure("buy", sig.Ticker, o.Reason, o.Err)
			t.log.Error().Err(botErr).Str("ticker", sig.Ticker).Msg("buy placement failed")
			record.Result = "failed"
			monitoring.RecordError(string(botErr.Category))
			monitoring.RecordOrder("buy", "failed", 0)
			records = append(records, record)

		case executor.Filled:
			record.Result = "filled"
			record.Price = o.Price
			record.Amount = o.Amount
			record.KRWValue = o.Price * o.Amount
			monitoring.RecordOrder("buy", "filled", record.KRWValue)
			records = append(records, record)

		case executor.Pending:
			record.Price = o.PriceEstimate
			record.Amount = o.AmountEstimate
			record.KRWValue = amount
			records = append(records, record)
			pending[o.OrderID] = len(records) - 1
			orderIDs = append(orderIDs, o.OrderID)
		}
	}

	if len(orderIDs) == 0 {
		return records
	}

	results, summary := t.monitor.WaitForBatch(ctx, orderIDs, t.cfg.Monitor.OrderTimeout)
	t.log.Info().Int("filled", summary.Filled).Int("timed_out", summary.TimedOut).
		Msg("buy batch settled")

	for orderID, idx := range pending {
		result := results[orderID]
		record := &records[idx]
		t.recordMonitorError(result, record.Ticker)
		record.Result = monitorResultName(result)
		if result.Order != nil && result.Order.AvgPrice > 0 {
			record.Price = result.Order.AvgPrice
			record.Amount = result.Order.ExecutedVolume
		}
		monitoring.RecordOrder("buy", record.Result, record.KRWValue)
		if result.Filled() {
			t.notifyFill(*record)
		}
	}

	return records
}
