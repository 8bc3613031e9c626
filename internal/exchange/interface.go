package exchange

import (
	"context"

	"github.com/jaewoo-dev/upbit-trading-bot/pkg/types"
)

// MarketDataProvider supplies prices and candle history for KRW markets.
type MarketDataProvider interface {
	// GetCurrentPrice returns the last traded price for a ticker (e.g. "KRW-BTC").
	GetCurrentPrice(ctx context.Context, ticker string) (float64, error)

	// GetDailyCandles returns up to count daily OHLCV bars, oldest first.
	GetDailyCandles(ctx context.Context, ticker string, count int) ([]types.OHLCV, error)

	// GetMarkets returns all tradable KRW market tickers.
	GetMarkets(ctx context.Context) ([]string, error)
}

// AccountProvider exposes account state and order placement.
type AccountProvider interface {
	// GetBalances returns every non-zero balance on the account.
	GetBalances(ctx context.Context) ([]types.Balance, error)

	// GetAveragePurchasePrice returns the exchange-reported average buy
	// price for a ticker. Advisory only; risk levels use the estimated
	// entry instead.
	GetAveragePurchasePrice(ctx context.Context, ticker string) (float64, error)

	// PlaceMarketBuy submits a market buy spending krwAmount of quote currency.
	PlaceMarketBuy(ctx context.Context, ticker string, krwAmount float64) (*Order, error)

	// PlaceMarketSell submits a market sell of volume base asset.
	PlaceMarketSell(ctx context.Context, ticker string, volume float64) (*Order, error)

	// PlaceLimitBuy and PlaceLimitSell submit limit orders at the given price.
	PlaceLimitBuy(ctx context.Context, ticker string, volume, price float64) (*Order, error)
	PlaceLimitSell(ctx context.Context, ticker string, volume, price float64) (*Order, error)

	// GetOrder returns the current state of an order.
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// CancelOrder cancels an open order.
	CancelOrder(ctx context.Context, orderID string) error
}

// Client combines the capability contracts consumed by the core.
type Client interface {
	MarketDataProvider
	AccountProvider
}
