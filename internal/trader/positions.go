package trader

import (
	"context"
	"fmt"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/risk"
)

// portfolio is a point-in-time snapshot of account holdings. It is rebuilt
// from the exchange at the start of every cycle and discarded afterwards.
type portfolio struct {
	AvailableKRW float64
	Positions    []risk.Position
	TotalValue   float64 // available KRW plus the market value of holdings
}

// ownedTickers returns the set of position tickers for scan deduplication.
func (p *portfolio) ownedTickers() map[string]bool {
	owned := make(map[string]bool, len(p.Positions))
	for _, pos := range p.Positions {
		owned[pos.Ticker] = true
	}
	return owned
}

// snapshotPortfolio fetches balances and prices each non-KRW holding.
// Holdings whose market value falls below the minimum order size are dust
// and are skipped. A price failure skips that holding rather than aborting
// the snapshot.
func (t *Trader) snapshotPortfolio(ctx context.Context) (*portfolio, error) {
	balances, err := t.client.GetBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balances: %w", err)
	}

	snap := &portfolio{}
	for _, bal := range balances {
		if bal.Currency == "KRW" {
			snap.AvailableKRW = bal.Free
			snap.TotalValue += bal.Total()
			continue
		}
		if bal.Total() <= 0 {
			continue
		}

		ticker := "KRW-" + bal.Currency
		price, err := t.client.GetCurrentPrice(ctx, ticker)
		if err != nil || price <= 0 {
			t.log.Warn().Err(err).Str("ticker", ticker).Msg("cannot price holding, skipping")
			continue
		}

		marketValue := bal.Total() * price
		if marketValue < t.cfg.Trading.MinOrderSize {
			continue
		}

		snap.Positions = append(snap.Positions, risk.Position{
			Ticker:       ticker,
			Currency:     bal.Currency,
			Free:         bal.Free,
			Locked:       bal.Locked,
			CurrentPrice: price,
			MarketValue:  marketValue,
		})
		snap.TotalValue += marketValue
	}

	t.log.Info().
		Float64("available_krw", snap.AvailableKRW).
		Int("positions", len(snap.Positions)).
		Float64("total_value", snap.TotalValue).
		Msg("portfolio snapshot")
	return snap, nil
}

// realizedProfitPct computes the realized gain of a sell against the
// exchange-reported average purchase price. Returns 0 when the average is
// unavailable.
func (t *Trader) realizedProfitPct(ctx context.Context, ticker string, sellPrice float64) float64 {
	avg, err := t.client.GetAveragePurchasePrice(ctx, ticker)
	if err != nil || avg <= 0 {
		return 0
	}
	return (sellPrice - avg) / avg * 100
}
