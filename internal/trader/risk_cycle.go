package trader

import (
	"context"
	"fmt"
	"time"

	boterrors "github.com/jaewoo-dev/upbit-trading-bot/internal/errors"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/executor"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/monitoring"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/orders"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/risk"
	"github.com/jaewoo-dev/upbit-trading-bot/pkg/reporting"
)

// RunRiskCycle evaluates every held position against its volatility-derived
// exit levels, liquidates positions whose stop-loss or take-profit
// triggered, and raises advisory alerts for the rest. A failure on one
// position never aborts the others.
func (t *Trader) RunRiskCycle(ctx context.Context) (*reporting.CycleReport, error) {
	start := time.Now()
	report := &reporting.CycleReport{Kind: "risk", StartedAt: start}

	snap, err := t.snapshotPortfolio(ctx)
	if err != nil {
		botErr := boterrors.CategorizeError(err, "trader", "portfolio_snapshot")
		t.log.Error().Err(botErr).Bool("retryable", botErr.IsRetryable()).
			Msg("portfolio snapshot failed")
		monitoring.RecordError(string(botErr.Category))
		monitoring.RecordCycle("risk", "error", time.Since(start).Seconds())
		t.notifyCycleFailure("risk", err)
		return nil, err
	}
	report.PortfolioValueKRW = snap.TotalValue
	report.AvailableKRW = snap.AvailableKRW
	monitoring.UpdatePortfolioValue(snap.TotalValue)

	for _, pos := range snap.Positions {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		levels, err := t.calc.EvaluatePosition(ctx, pos, snap.TotalValue)
		if err != nil {
			botErr := boterrors.NewMarketDataError("risk", "evaluate_position", err).
				WithContext("ticker", pos.Ticker)
			t.log.Error().Err(botErr).Str("ticker", pos.Ticker).Msg("position evaluation failed")
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", pos.Ticker, botErr))
			monitoring.RecordError(string(botErr.Category))
			continue
		}
		monitoring.UpdatePositionRisk(pos.Ticker, levels.PositionRiskPct, levels.ATRPercent)

		trigger := t.calc.EvaluateTriggers(pos, levels)
		posReport := reporting.PositionReport{
			Ticker:          pos.Ticker,
			CurrentPrice:    pos.CurrentPrice,
			MarketValue:     pos.MarketValue,
			ProfitLossPct:   levels.ProfitLossPercent,
			ATRPercent:      levels.ATRPercent,
			StopLoss:        levels.StopLoss,
			TakeProfit:      levels.TakeProfit,
			PositionRiskPct: levels.PositionRiskPct,
			Triggered:       trigger.String(),
		}
		report.Positions = append(report.Positions, posReport)

		if trigger == risk.TriggerNone {
			for _, alert := range t.calc.CollectAlerts(pos, levels) {
				report.Alerts = append(report.Alerts, alert.Message)
				if err := t.notifier.SendAlert("warning", alert.Message); err != nil {
					t.log.Warn().Err(err).Msg("alert notification failed")
				}
			}
			continue
		}

		record := t.liquidate(ctx, pos, trigger.String())
		report.Trades = append(report.Trades, record)
	}

	report.Duration = time.Since(start)
	t.console.PrintCycle(report)
	t.notifyCycleSummary(report)
	monitoring.RecordCycle("risk", "ok", report.Duration.Seconds())
	return report, nil
}

// liquidate sells the sellable balance of a triggered position and waits
// for the order to reach a terminal state.
func (t *Trader) liquidate(ctx context.Context, pos risk.Position, reason string) reporting.TradeRecord {
	record := reporting.TradeRecord{
		Ticker: pos.Ticker,
		Side:   "sell",
		Reason: reason,
	}

	outcome := t.exec.Sell(ctx, pos.Ticker, pos.Free)
	switch o := outcome.(type) {
	case executor.Failed:
		botErr := orderFailure("sell", pos.Ticker, o.Reason, o.Err)
		t.log.Error().Err(botErr).Str("ticker", pos.Ticker).Msg("liquidation failed")
		record.Result = "failed"
		monitoring.RecordError(string(botErr.Category))
		monitoring.RecordOrder("sell", "failed", 0)
		return record

	case executor.Filled:
		record.Result = "filled"
		record.Price = o.Price
		record.Amount = o.Amount
		record.KRWValue = o.Price * o.Amount
		record.ProfitPct = t.realizedProfitPct(ctx, pos.Ticker, o.Price)
		monitoring.RecordOrder("sell", "filled", record.KRWValue)
		t.notifyFill(record)
		return record

	case executor.Pending:
		result := t.monitor.Monitor(ctx, o.OrderID)
		t.recordMonitorError(result, pos.Ticker)
		record.Result = monitorResultName(result)
		record.Price = o.PriceEstimate
		record.Amount = o.AmountEstimate
		if result.Order != nil && result.Order.AvgPrice > 0 {
			record.Price = result.Order.AvgPrice
			record.Amount = result.Order.ExecutedVolume
		}
		record.KRWValue = record.Price * record.Amount
		if result.Filled() {
			record.ProfitPct = t.realizedProfitPct(ctx, pos.Ticker, record.Price)
			t.notifyFill(record)
		}
		monitoring.RecordOrder("sell", record.Result, record.KRWValue)
		return record
	}

	record.Result = "failed"
	return record
}

// notifyCycleSummary sends an out-of-band summary when the cycle actually
// did something. Idle cycles stay quiet.
func (t *Trader) notifyCycleSummary(report *reporting.CycleReport) {
	if len(report.Trades) == 0 && len(report.Errors) == 0 {
		return
	}
	msg := fmt.Sprintf("%s cycle: %d positions, %d trades, %d alerts, %d errors, portfolio %s",
		report.Kind, len(report.Positions), len(report.Trades),
		len(report.Alerts), len(report.Errors),
		reporting.FormatKRW(report.PortfolioValueKRW))
	level := "info"
	if len(report.Errors) > 0 {
		level = "warning"
	}
	if err := t.notifier.SendAlert(level, msg); err != nil {
		t.log.Warn().Err(err).Msg("cycle summary notification failed")
	}
}

func (t *Trader) notifyCycleFailure(kind string, cause error) {
	msg := fmt.Sprintf("%s cycle aborted: %v", kind, cause)
	if err := t.notifier.SendAlert("error", msg); err != nil {
		t.log.Warn().Err(err).Msg("failure notification failed")
	}
}

func (t *Trader) notifyFill(record reporting.TradeRecord) {
	msg := fmt.Sprintf("%s %s filled: %.6f @ %s (%+.2f%%) [%s]",
		record.Ticker, record.Side, record.Amount,
		reporting.FormatKRW(record.Price), record.ProfitPct, record.Reason)
	if err := t.notifier.SendAlert("success", msg); err != nil {
		t.log.Warn().Err(err).Msg("fill notification failed")
	}
}

// monitorResultName maps a monitor result onto the report vocabulary.
func monitorResultName(result orders.Result) string {
	if result.Filled() {
		return "filled"
	}
	return string(result.State)
}

// orderFailure builds a categorized order error from an executor failure.
func orderFailure(operation, ticker, reason string, cause error) *boterrors.BotError {
	if cause == nil {
		return boterrors.NewBotError(boterrors.ErrorCategoryOrder, "executor", operation, reason).
			WithContext("ticker", ticker)
	}
	return boterrors.NewOrderError("executor", operation, cause).WithContext("ticker", ticker)
}

// recordMonitorError records a categorized error when order monitoring
// ended without reaching a terminal exchange state. Fills and cancellations
// are terminal and recorded through the order metrics instead.
func (t *Trader) recordMonitorError(result orders.Result, ticker string) {
	var botErr *boterrors.BotError
	switch result.State {
	case exchange.StateTimeout:
		cause := result.Err
		if cause == nil {
			cause = fmt.Errorf("order %s not terminal before deadline", result.OrderID)
		}
		botErr = boterrors.NewTimeoutError("order_monitor", "poll", cause)
	case exchange.StateError, exchange.StateUnknown:
		botErr = boterrors.CategorizeError(result.Err, "order_monitor", "poll")
		if botErr == nil {
			botErr = boterrors.NewBotError(boterrors.ErrorCategoryNetwork,
				"order_monitor", "poll", "order status unavailable")
		}
	default:
		return
	}
	botErr.WithContext("ticker", ticker).WithContext("order_id", result.OrderID)
	t.log.Warn().Err(botErr).Bool("retryable", botErr.IsRetryable()).
		Str("ticker", ticker).Msg("order monitoring ended without fill")
	monitoring.RecordError(string(botErr.Category))
}
