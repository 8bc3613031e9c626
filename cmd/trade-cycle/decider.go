package main

import (
	"context"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/signal"
	"github.com/jaewoo-dev/upbit-trading-bot/pkg/types"
)

const (
	sellDropThreshold = -0.05 // daily loss that exits an owned position
	buyTrendMargin    = 1.0   // close must exceed the recent average to buy
)

// trendDecider is a simple trend filter: buy momentum candidates trading
// above their recent average close, exit owned positions on a sharp daily
// drop. Anything else holds.
func trendDecider() signal.Decider {
	return signal.DeciderFunc(func(ctx context.Context, c signal.Signal, bars []types.OHLCV) signal.Action {
		if c.Owned && c.DailyChange < sellDropThreshold {
			return signal.ActionSell
		}
		if c.Owned || len(bars) == 0 {
			return signal.ActionHold
		}

		var avgClose float64
		for _, bar := range bars {
			avgClose += bar.Close
		}
		avgClose /= float64(len(bars))

		if c.IsMomentum && c.CurrentPrice > avgClose*buyTrendMargin {
			return signal.ActionBuy
		}
		return signal.ActionHold
	})
}
