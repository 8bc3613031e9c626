package trader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/allocation"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/executor"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/notifications"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/orders"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/risk"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/signal"
	"github.com/jaewoo-dev/upbit-trading-bot/pkg/reporting"
	"github.com/jaewoo-dev/upbit-trading-bot/pkg/types"
)

// fakeExchange is a single-threaded in-memory exchange. Orders fill on the
// first status poll. The calls slice records operation order.
type fakeExchange struct {
	markets   []string
	prices    map[string]float64
	candles   map[string][]types.OHLCV
	balances  []types.Balance
	avgPrices map[string]float64
	sellErr   error
	seq       int
	calls     []string
}

func (f *fakeExchange) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	price, ok := f.prices[ticker]
	if !ok {
		return 0, errors.New("unknown ticker")
	}
	return price, nil
}

func (f *fakeExchange) GetDailyCandles(ctx context.Context, ticker string, count int) ([]types.OHLCV, error) {
	bars, ok := f.candles[ticker]
	if !ok {
		return nil, errors.New("no candles")
	}
	return bars, nil
}

func (f *fakeExchange) GetMarkets(ctx context.Context) ([]string, error) {
	return f.markets, nil
}

func (f *fakeExchange) GetBalances(ctx context.Context) ([]types.Balance, error) {
	return f.balances, nil
}

func (f *fakeExchange) GetAveragePurchasePrice(ctx context.Context, ticker string) (float64, error) {
	avg, ok := f.avgPrices[ticker]
	if !ok {
		return 0, errors.New("no purchase history")
	}
	return avg, nil
}

func (f *fakeExchange) place(ticker, side string) (*exchange.Order, error) {
	f.seq++
	f.calls = append(f.calls, side+":"+ticker)
	return &exchange.Order{
		ID:     fmt.Sprintf("ord-%d", f.seq),
		Market: ticker,
		State:  exchange.StateWait,
	}, nil
}

func (f *fakeExchange) PlaceMarketBuy(ctx context.Context, ticker string, krwAmount float64) (*exchange.Order, error) {
	f.calls = append(f.calls, fmt.Sprintf("buy_krw:%.0f", krwAmount))
	return f.place(ticker, "buy")
}

func (f *fakeExchange) PlaceMarketSell(ctx context.Context, ticker string, volume float64) (*exchange.Order, error) {
	if f.sellErr != nil {
		return nil, f.sellErr
	}
	return f.place(ticker, "sell")
}

func (f *fakeExchange) PlaceLimitBuy(ctx context.Context, ticker string, volume, price float64) (*exchange.Order, error) {
	return f.place(ticker, "limit_buy")
}

func (f *fakeExchange) PlaceLimitSell(ctx context.Context, ticker string, volume, price float64) (*exchange.Order, error) {
	return f.place(ticker, "limit_sell")
}

func (f *fakeExchange) GetOrder(ctx context.Context, orderID string) (*exchange.Order, error) {
	return &exchange.Order{ID: orderID, State: exchange.StateDone}, nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

// errorCategoryCount reads the current value of the error counter for one
// category from the default registry.
func errorCategoryCount(t *testing.T, category string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "upbit_bot_errors_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "category" && label.GetValue() == category {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// flatBars builds n identical bars around a close price.
func flatBars(n int, close, low, high float64) []types.OHLCV {
	bars := make([]types.OHLCV, n)
	for i := range bars {
		bars[i] = types.OHLCV{Open: close, High: high, Low: low, Close: close, Volume: 100}
	}
	return bars
}

func testConfig() *config.Config {
	return &config.Config{
		Trading: config.TradingConfig{
			MinOrderSize:  5000,
			ReserveRatio:  0.02,
			MomentumRatio: 0.6,
			TestBuyCapKRW: 5500,
			TestSellRatio: 0.05,
			MinSellVolume: 0.0001,
			FeeRate:       0.0005,
		},
		Risk: config.RiskConfig{
			ATRPeriod:             14,
			StopMultiplier:        2.0,
			ProfitMultiplier:      3.0,
			TrailMultiplier:       1.5,
			FallbackATRPercent:    0.02,
			VolatilityAlertPct:    8,
			ConcentrationAlertPct: 10,
		},
		Monitor: config.MonitorConfig{
			OrderTimeout:    200 * time.Millisecond,
			PollInterval:    time.Millisecond,
			MaxPollFailures: 5,
			MaxPollBackoff:  5 * time.Millisecond,
		},
	}
}

func newTestTrader(client *fakeExchange, decider signal.Decider) *Trader {
	cfg := testConfig()
	log := zerolog.Nop()

	tr := New(
		client,
		cfg,
		risk.NewCalculator(cfg.Risk, client, log),
		allocation.NewAllocator(cfg.Trading, log),
		signal.NewScanner(client, decider, log),
		executor.NewMarketExecutor(client, cfg.Trading, log),
		orders.NewMonitor(client, cfg.Monitor, log),
		notifications.NopNotifier{},
		log,
	)
	tr.console = reporting.NewConsoleReporterTo(io.Discard)
	return tr
}

func TestRiskCycle_StopLossLiquidatesPosition(t *testing.T) {
	// Entry estimate 1300, fallback ATR 20, stop 1260: price 1000 is below.
	client := &fakeExchange{
		prices:    map[string]float64{"KRW-DOGE": 1_000},
		candles:   map[string][]types.OHLCV{"KRW-DOGE": flatBars(2, 1_300, 1_200, 1_400)},
		balances:  []types.Balance{{Currency: "KRW", Free: 50_000}, {Currency: "DOGE", Free: 10}},
		avgPrices: map[string]float64{"KRW-DOGE": 800},
	}
	tr := newTestTrader(client, nil)

	report, err := tr.RunRiskCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Trades, 1)
	trade := report.Trades[0]
	assert.Equal(t, "KRW-DOGE", trade.Ticker)
	assert.Equal(t, "sell", trade.Side)
	assert.Equal(t, "filled", trade.Result)
	assert.Equal(t, "STOP-LOSS", trade.Reason)
	assert.InDelta(t, 25.0, trade.ProfitPct, 1e-9) // sold at 1000 against 800 basis

	require.Len(t, report.Positions, 1)
	assert.Equal(t, "STOP-LOSS", report.Positions[0].Triggered)
	assert.Contains(t, client.calls, "sell:KRW-DOGE")
}

func TestRiskCycle_NoTriggerRaisesConcentrationAlert(t *testing.T) {
	// Entry estimate 1000 keeps price between stop and target; the single
	// position dominates the portfolio, so the concentration alert fires.
	client := &fakeExchange{
		prices:   map[string]float64{"KRW-DOGE": 1_000},
		candles:  map[string][]types.OHLCV{"KRW-DOGE": flatBars(2, 1_000, 980, 1_020)},
		balances: []types.Balance{{Currency: "DOGE", Free: 10}},
	}
	tr := newTestTrader(client, nil)

	report, err := tr.RunRiskCycle(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Trades)
	require.Len(t, report.Positions, 1)
	assert.Equal(t, "NONE", report.Positions[0].Triggered)
	require.NotEmpty(t, report.Alerts)
	assert.Contains(t, report.Alerts[0], "Large position")
}

func TestRiskCycle_DustHoldingsAreSkipped(t *testing.T) {
	client := &fakeExchange{
		prices:   map[string]float64{"KRW-DUST": 100},
		balances: []types.Balance{{Currency: "KRW", Free: 10_000}, {Currency: "DUST", Free: 1}},
	}
	tr := newTestTrader(client, nil)

	report, err := tr.RunRiskCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Positions)
	assert.InDelta(t, 10_000, report.PortfolioValueKRW, 1e-9)
}

func TestRiskCycle_EvaluationFailureIsolatedPerTicker(t *testing.T) {
	// KRW-AAA has no candles so evaluation fails; KRW-BBB still evaluates.
	client := &fakeExchange{
		prices: map[string]float64{"KRW-AAA": 1_000, "KRW-BBB": 1_000},
		candles: map[string][]types.OHLCV{
			"KRW-BBB": flatBars(2, 1_000, 980, 1_020),
		},
		balances: []types.Balance{
			{Currency: "AAA", Free: 10},
			{Currency: "BBB", Free: 10},
		},
	}
	tr := newTestTrader(client, nil)

	report, err := tr.RunRiskCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "KRW-AAA")
	require.Len(t, report.Positions, 1)
	assert.Equal(t, "KRW-BBB", report.Positions[0].Ticker)
}

func TestRiskCycle_EvaluationFailureRecordedByCategory(t *testing.T) {
	client := &fakeExchange{
		prices:   map[string]float64{"KRW-AAA": 1_000},
		balances: []types.Balance{{Currency: "AAA", Free: 10}},
	}
	tr := newTestTrader(client, nil)

	before := errorCategoryCount(t, "MARKET_DATA")
	report, err := tr.RunRiskCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "KRW-AAA")
	assert.Contains(t, report.Errors[0], "MARKET_DATA")
	assert.InDelta(t, before+1, errorCategoryCount(t, "MARKET_DATA"), 1e-9)
}

func TestRiskCycle_LiquidationFailureRecordedAsOrderError(t *testing.T) {
	// Stop-loss triggers but the sell placement is rejected.
	client := &fakeExchange{
		prices:   map[string]float64{"KRW-DOGE": 1_000},
		candles:  map[string][]types.OHLCV{"KRW-DOGE": flatBars(2, 1_300, 1_200, 1_400)},
		balances: []types.Balance{{Currency: "DOGE", Free: 10}},
		sellErr:  errors.New("insufficient balance"),
	}
	tr := newTestTrader(client, nil)

	before := errorCategoryCount(t, "ORDER")
	report, err := tr.RunRiskCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Trades, 1)
	assert.Equal(t, "failed", report.Trades[0].Result)
	assert.InDelta(t, before+1, errorCategoryCount(t, "ORDER"), 1e-9)
}

func TestTradeCycle_BuySignalAllocatedAndFilled(t *testing.T) {
	decider := signal.DeciderFunc(func(ctx context.Context, c signal.Signal, bars []types.OHLCV) signal.Action {
		if c.Ticker == "KRW-AAA" {
			return signal.ActionBuy
		}
		return signal.ActionHold
	})
	client := &fakeExchange{
		markets: []string{"KRW-AAA", "KRW-BBB"},
		prices:  map[string]float64{"KRW-AAA": 1_000, "KRW-BBB": 2_000},
		candles: map[string][]types.OHLCV{
			"KRW-AAA": flatBars(5, 1_000, 980, 1_020),
			"KRW-BBB": flatBars(5, 2_000, 1_980, 2_020),
		},
		balances: []types.Balance{{Currency: "KRW", Free: 100_000}},
	}
	tr := newTestTrader(client, decider)

	report, err := tr.RunTradeCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Trades, 1)
	trade := report.Trades[0]
	assert.Equal(t, "KRW-AAA", trade.Ticker)
	assert.Equal(t, "buy", trade.Side)
	assert.Equal(t, "filled", trade.Result)

	// Sole regular signal receives the whole tradeable pool after reserve.
	assert.Contains(t, client.calls, "buy_krw:98000")
}

func TestTradeCycle_SellsAwaitedBeforeBuys(t *testing.T) {
	decider := signal.DeciderFunc(func(ctx context.Context, c signal.Signal, bars []types.OHLCV) signal.Action {
		switch c.Ticker {
		case "KRW-AAA":
			return signal.ActionBuy
		case "KRW-BBB":
			return signal.ActionSell
		default:
			return signal.ActionHold
		}
	})
	client := &fakeExchange{
		markets: []string{"KRW-AAA", "KRW-BBB"},
		prices:  map[string]float64{"KRW-AAA": 1_000, "KRW-BBB": 2_000},
		candles: map[string][]types.OHLCV{
			"KRW-AAA": flatBars(5, 1_000, 980, 1_020),
			"KRW-BBB": flatBars(5, 2_000, 1_980, 2_020),
		},
		balances: []types.Balance{
			{Currency: "KRW", Free: 100_000},
			{Currency: "BBB", Free: 5},
		},
		avgPrices: map[string]float64{"KRW-BBB": 1_000},
	}
	tr := newTestTrader(client, decider)

	report, err := tr.RunTradeCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Trades, 2)

	sellIdx, buyIdx := -1, -1
	for i, call := range client.calls {
		if call == "sell:KRW-BBB" && sellIdx == -1 {
			sellIdx = i
		}
		if call == "buy:KRW-AAA" && buyIdx == -1 {
			buyIdx = i
		}
	}
	require.NotEqual(t, -1, sellIdx, "sell was never placed")
	require.NotEqual(t, -1, buyIdx, "buy was never placed")
	assert.Less(t, sellIdx, buyIdx, "sell must settle before any buy is placed")
}

func TestTradeCycle_NoSignalsProducesEmptyReport(t *testing.T) {
	decider := signal.DeciderFunc(func(ctx context.Context, c signal.Signal, bars []types.OHLCV) signal.Action {
		return signal.ActionHold
	})
	client := &fakeExchange{
		markets:  []string{"KRW-AAA"},
		prices:   map[string]float64{"KRW-AAA": 1_000},
		candles:  map[string][]types.OHLCV{"KRW-AAA": flatBars(5, 1_000, 980, 1_020)},
		balances: []types.Balance{{Currency: "KRW", Free: 100_000}},
	}
	tr := newTestTrader(client, decider)

	report, err := tr.RunTradeCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Trades)
	assert.InDelta(t, 100_000, report.AvailableKRW, 1e-9)
}
