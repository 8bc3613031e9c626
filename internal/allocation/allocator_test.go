package allocation

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/signal"
)

func testTradingConfig() config.TradingConfig {
	return config.TradingConfig{
		MinOrderSize:  5000,
		ReserveRatio:  0.02,
		MomentumRatio: 0.6,
	}
}

func newTestAllocator() *Allocator {
	return NewAllocator(testTradingConfig(), zerolog.Nop())
}

func TestAllocate_NoSignals(t *testing.T) {
	a := newTestAllocator()
	allocations := a.Allocate(1_000_000, nil)
	assert.Empty(t, allocations)
}

func TestAllocate_MixedGroups(t *testing.T) {
	// Budget 1,000,000: tradeable = 980,000, momentum pool = 588,000
	// split 50/50, regular pool = 392,000 to the single regular signal.
	a := newTestAllocator()
	signals := []signal.Signal{
		{Ticker: "KRW-A", IsMomentum: true, MomentumScore: 20},
		{Ticker: "KRW-B", IsMomentum: true, MomentumScore: 20},
		{Ticker: "KRW-C"},
	}

	allocations := a.Allocate(1_000_000, signals)
	require.Len(t, allocations, 3)
	assert.InDelta(t, 294_000, allocations["KRW-A"], 1e-6)
	assert.InDelta(t, 294_000, allocations["KRW-B"], 1e-6)
	assert.InDelta(t, 392_000, allocations["KRW-C"], 1e-6)
}

func TestAllocate_MomentumWeightedByScore(t *testing.T) {
	a := newTestAllocator()
	signals := []signal.Signal{
		{Ticker: "KRW-A", IsMomentum: true, MomentumScore: 30},
		{Ticker: "KRW-B", IsMomentum: true, MomentumScore: 10},
	}

	allocations := a.Allocate(1_000_000, signals)
	require.Len(t, allocations, 2)

	// 3:1 split of the whole tradeable pool (no regular group).
	assert.InDelta(t, 3.0, allocations["KRW-A"]/allocations["KRW-B"], 1e-9)
	assert.InDelta(t, 735_000, allocations["KRW-A"], 1e-6)
	assert.InDelta(t, 245_000, allocations["KRW-B"], 1e-6)
}

func TestAllocate_ZeroScoresFallBackToEqualWeight(t *testing.T) {
	a := newTestAllocator()
	signals := []signal.Signal{
		{Ticker: "KRW-A", IsMomentum: true},
		{Ticker: "KRW-B", IsMomentum: true},
	}

	allocations := a.Allocate(1_000_000, signals)
	require.Len(t, allocations, 2)
	assert.InDelta(t, allocations["KRW-A"], allocations["KRW-B"], 1e-9)
}

func TestAllocate_RegularOnlyGetsFullPool(t *testing.T) {
	a := newTestAllocator()
	signals := []signal.Signal{
		{Ticker: "KRW-A"},
		{Ticker: "KRW-B"},
	}

	allocations := a.Allocate(100_000, signals)
	require.Len(t, allocations, 2)
	assert.InDelta(t, 49_000, allocations["KRW-A"], 1e-6)
	assert.InDelta(t, 49_000, allocations["KRW-B"], 1e-6)
}

func TestAllocate_DropsBelowMinimumWithoutRedistribution(t *testing.T) {
	a := newTestAllocator()
	signals := []signal.Signal{
		{Ticker: "KRW-A", IsMomentum: true, MomentumScore: 99},
		{Ticker: "KRW-B", IsMomentum: true, MomentumScore: 1},
	}

	// Pool = 98,000: B gets 980 which is below the 5,000 minimum.
	allocations := a.Allocate(100_000, signals)
	require.Len(t, allocations, 1)
	assert.Contains(t, allocations, "KRW-A")

	// Dropped capital is not redistributed: A keeps its own share only.
	assert.InDelta(t, 98_000*0.99, allocations["KRW-A"], 1e-6)
}

func TestAllocate_AllBelowMinimum(t *testing.T) {
	a := newTestAllocator()
	signals := []signal.Signal{
		{Ticker: "KRW-A"},
		{Ticker: "KRW-B"},
	}

	allocations := a.Allocate(9_000, signals) // 4,410 each
	assert.Empty(t, allocations)
}

func TestAllocate_SumNeverExceedsTradeableCapital(t *testing.T) {
	a := newTestAllocator()
	budgets := []float64{10_000, 123_456, 1_000_000, 50_000_000}
	signals := []signal.Signal{
		{Ticker: "KRW-A", IsMomentum: true, MomentumScore: 12},
		{Ticker: "KRW-B", IsMomentum: true, MomentumScore: 7},
		{Ticker: "KRW-C"},
		{Ticker: "KRW-D"},
	}

	for _, budget := range budgets {
		allocations := a.Allocate(budget, signals)
		total := 0.0
		for ticker, amount := range allocations {
			assert.GreaterOrEqual(t, amount, 5000.0, "budget %.0f ticker %s", budget, ticker)
			total += amount
		}
		assert.LessOrEqual(t, total, budget*0.98+1e-6, "budget %.0f", budget)
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	a := newTestAllocator()
	signals := []signal.Signal{
		{Ticker: "KRW-A", IsMomentum: true, MomentumScore: 5},
		{Ticker: "KRW-B"},
	}

	first := a.Allocate(777_777, signals)
	second := a.Allocate(777_777, signals)
	assert.Equal(t, first, second)
}
