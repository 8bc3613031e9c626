package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange"
)

const (
	defaultSliceCount = 5
	sliceNudge        = 0.0001 // price improvement per slice
	slicePause        = 2 * time.Second
)

// IcebergExecutor splits a large order into equal limit-order slices to
// reduce visible market impact, nudging the price slightly per slice and
// aborting early when a slice is not filling. It implements the same
// Strategy interface as the market executor and can be swapped in where
// slippage matters more than certainty of execution.
type IcebergExecutor struct {
	client     exchange.Client
	cfg        config.TradingConfig
	sliceCount int
	slicePause time.Duration
	log        zerolog.Logger
}

// NewIcebergExecutor creates the slicing execution strategy.
func NewIcebergExecutor(client exchange.Client, cfg config.TradingConfig, log zerolog.Logger) *IcebergExecutor {
	return &IcebergExecutor{
		client:     client,
		cfg:        cfg,
		sliceCount: defaultSliceCount,
		slicePause: slicePause,
		log:        log.With().Str("component", "iceberg").Logger(),
	}
}

// Buy splits a krwAmount buy into limit-order slices at slightly improving
// prices. Returns Filled with the executed totals, or Failed when no slice
// could be placed.
func (e *IcebergExecutor) Buy(ctx context.Context, ticker string, krwAmount float64) Outcome {
	price, err := e.client.GetCurrentPrice(ctx, ticker)
	if err != nil || price <= 0 {
		return Fail(fmt.Sprintf("cannot resolve current price for %s", ticker), err)
	}

	totalVolume := krwAmount / price
	return e.execute(ctx, ticker, exchange.SideBuy, totalVolume, price)
}

// Sell splits a volume sell into limit-order slices.
func (e *IcebergExecutor) Sell(ctx context.Context, ticker string, volume float64) Outcome {
	if volume <= 0 {
		return Fail(fmt.Sprintf("no balance to sell for %s", ticker), nil)
	}

	price, err := e.client.GetCurrentPrice(ctx, ticker)
	if err != nil || price <= 0 {
		return Fail(fmt.Sprintf("cannot resolve current price for %s", ticker), err)
	}

	return e.execute(ctx, ticker, exchange.SideSell, volume, price)
}

func (e *IcebergExecutor) execute(ctx context.Context, ticker string, side exchange.OrderSide, totalVolume, basePrice float64) Outcome {
	sliceVolume := totalVolume / float64(e.sliceCount)
	executedVolume := 0.0
	weightedFunds := 0.0

	for i := 0; i < e.sliceCount; i++ {
		if ctx.Err() != nil {
			break
		}

		slicePrice := RoundToTick(basePrice * (1 + float64(i)*sliceNudge))

		var order *exchange.Order
		var err error
		if side == exchange.SideSell {
			order, err = e.client.PlaceLimitSell(ctx, ticker, sliceVolume, slicePrice)
		} else {
			order, err = e.client.PlaceLimitBuy(ctx, ticker, sliceVolume, slicePrice)
		}
		if err != nil {
			e.log.Warn().Err(err).Str("ticker", ticker).Int("slice", i+1).
				Msg("slice placement failed, aborting remaining slices")
			break
		}

		executedVolume += sliceVolume
		weightedFunds += sliceVolume * slicePrice
		e.log.Info().Str("ticker", ticker).Str("order_id", order.ID).
			Int("slice", i+1).Int("slices", e.sliceCount).
			Float64("price", slicePrice).Msg("slice placed")

		if !e.pause(ctx) {
			break
		}

		// Abort early when the slice is neither filled nor resting.
		status, err := e.client.GetOrder(ctx, order.ID)
		if err == nil && status.State != exchange.StateDone && status.State != exchange.StateWait {
			e.log.Warn().Str("ticker", ticker).Int("slice", i+1).
				Str("state", string(status.State)).
				Msg("slice not filling, aborting remaining slices")
			break
		}
	}

	if executedVolume == 0 {
		return Fail(fmt.Sprintf("no iceberg slice executed for %s", ticker), nil)
	}
	return Filled{
		Price:  weightedFunds / executedVolume,
		Amount: executedVolume,
	}
}

// pause waits between slices. Returns false when the context is cancelled
// so the caller stops placing further slices.
func (e *IcebergExecutor) pause(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(e.slicePause):
		return true
	}
}
