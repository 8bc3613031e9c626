package executor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange"
)

// Strategy converts a sized order intent into exchange calls. The market
// executor is the active implementation; the iceberg executor is a
// pluggable alternative behind the same interface.
type Strategy interface {
	Buy(ctx context.Context, ticker string, krwAmount float64) Outcome
	Sell(ctx context.Context, ticker string, volume float64) Outcome
}

// MarketExecutor places plain market orders. In test mode the requested
// size is clamped before submission so the same code path is safe to
// exercise against a live account without risking material capital.
type MarketExecutor struct {
	client exchange.Client
	cfg    config.TradingConfig
	log    zerolog.Logger
}

// NewMarketExecutor creates the market-order execution strategy.
func NewMarketExecutor(client exchange.Client, cfg config.TradingConfig, log zerolog.Logger) *MarketExecutor {
	return &MarketExecutor{
		client: client,
		cfg:    cfg,
		log:    log.With().Str("component", "executor").Logger(),
	}
}

// Buy submits a market buy spending krwAmount. The returned Pending
// outcome carries the current price and the estimated base amount after
// fees, for reporting before the fill is confirmed.
func (e *MarketExecutor) Buy(ctx context.Context, ticker string, krwAmount float64) Outcome {
	if e.cfg.TestMode && krwAmount > e.cfg.TestBuyCapKRW {
		e.log.Info().
			Str("ticker", ticker).
			Float64("requested_krw", krwAmount).
			Float64("clamped_krw", e.cfg.TestBuyCapKRW).
			Msg("test mode: buy amount clamped")
		krwAmount = e.cfg.TestBuyCapKRW
	}

	currentPrice, err := e.client.GetCurrentPrice(ctx, ticker)
	if err != nil || currentPrice <= 0 {
		return Fail(fmt.Sprintf("cannot resolve current price for %s", ticker), err)
	}

	e.log.Info().Str("ticker", ticker).Float64("krw", krwAmount).Msg("placing market buy")
	order, err := e.client.PlaceMarketBuy(ctx, ticker, krwAmount)
	if err != nil {
		return Fail(fmt.Sprintf("market buy failed for %s", ticker), err)
	}
	if order == nil || order.ID == "" {
		return Fail(fmt.Sprintf("market buy for %s returned no order id", ticker), nil)
	}

	e.log.Info().Str("ticker", ticker).Str("order_id", order.ID).Msg("market buy placed")
	return Pending{
		OrderID:        order.ID,
		PriceEstimate:  currentPrice,
		AmountEstimate: krwAmount * (1 - e.cfg.FeeRate) / currentPrice,
	}
}

// Sell submits a market sell of volume base asset. In test mode the volume
// is clamped to a small fraction of the free balance, with a minimum floor.
func (e *MarketExecutor) Sell(ctx context.Context, ticker string, volume float64) Outcome {
	if volume <= 0 {
		return Fail(fmt.Sprintf("no balance to sell for %s", ticker), nil)
	}

	if e.cfg.TestMode {
		free, err := e.freeBalance(ctx, ticker)
		if err == nil && free > 0 {
			clamped := min(free*e.cfg.TestSellRatio, volume)
			clamped = max(clamped, e.cfg.MinSellVolume)
			if clamped < volume {
				e.log.Info().
					Str("ticker", ticker).
					Float64("requested", volume).
					Float64("clamped", clamped).
					Msg("test mode: sell volume clamped")
				volume = clamped
			}
		}
	}

	currentPrice, err := e.client.GetCurrentPrice(ctx, ticker)
	if err != nil || currentPrice <= 0 {
		return Fail(fmt.Sprintf("cannot resolve current price for %s", ticker), err)
	}

	e.log.Info().Str("ticker", ticker).Float64("volume", volume).Msg("placing market sell")
	order, err := e.client.PlaceMarketSell(ctx, ticker, volume)
	if err != nil {
		return Fail(fmt.Sprintf("market sell failed for %s", ticker), err)
	}
	if order == nil || order.ID == "" {
		return Fail(fmt.Sprintf("market sell for %s returned no order id", ticker), nil)
	}

	e.log.Info().Str("ticker", ticker).Str("order_id", order.ID).Msg("market sell placed")
	return Pending{
		OrderID:        order.ID,
		PriceEstimate:  currentPrice,
		AmountEstimate: volume,
	}
}

// BuyWithAntiSlippage resolves directly to the market-order primitive.
// Limit-order slicing exists as the iceberg strategy but market orders are
// the active path for reliability.
func (e *MarketExecutor) BuyWithAntiSlippage(ctx context.Context, ticker string, krwAmount float64) Outcome {
	e.log.Info().Str("ticker", ticker).Msg("anti-slippage buy: using direct market order")
	return e.Buy(ctx, ticker, krwAmount)
}

// SellWithAntiSlippage resolves directly to the market-order primitive.
func (e *MarketExecutor) SellWithAntiSlippage(ctx context.Context, ticker string, volume float64) Outcome {
	e.log.Info().Str("ticker", ticker).Msg("anti-slippage sell: using direct market order")
	return e.Sell(ctx, ticker, volume)
}

func (e *MarketExecutor) freeBalance(ctx context.Context, ticker string) (float64, error) {
	currency := ticker
	if len(ticker) > 4 && ticker[:4] == "KRW-" {
		currency = ticker[4:]
	}

	balances, err := e.client.GetBalances(ctx)
	if err != nil {
		return 0, err
	}
	for _, b := range balances {
		if b.Currency == currency {
			return b.Free, nil
		}
	}
	return 0, nil
}
