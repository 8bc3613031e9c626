package signal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange"
	"github.com/jaewoo-dev/upbit-trading-bot/pkg/types"
)

const (
	surgeThreshold    = 0.10 // daily gain that counts as a price surge
	volumeSpikeRatio  = 3.0  // multiple of average volume that counts as a spike
	breakoutMargin    = 1.05 // fraction above the recent high that counts as a breakout
	breakoutScore     = 20.0
	momentumTakeCount = 5 // momentum candidates appended beyond the top list
)

// Decider assigns a trade action to a candidate. The trend-following
// decision logic itself lives outside this package; the scanner only
// supplies market context and momentum scoring.
type Decider interface {
	Decide(ctx context.Context, candidate Signal, bars []types.OHLCV) Action
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, candidate Signal, bars []types.OHLCV) Action

func (f DeciderFunc) Decide(ctx context.Context, candidate Signal, bars []types.OHLCV) Action {
	return f(ctx, candidate, bars)
}

// Scanner scans KRW markets for trade candidates, detecting momentum from
// price surges, volume spikes and breakouts.
type Scanner struct {
	market    exchange.MarketDataProvider
	decider   Decider
	scanPause time.Duration // rate-limit pause between market-data fetches
	log       zerolog.Logger
}

// NewScanner creates a market scanner.
func NewScanner(market exchange.MarketDataProvider, decider Decider, log zerolog.Logger) *Scanner {
	return &Scanner{
		market:    market,
		decider:   decider,
		scanPause: 50 * time.Millisecond,
		log:       log.With().Str("component", "scanner").Logger(),
	}
}

// Scan analyzes every KRW market and returns the selected candidates:
// the top baseCount by trading value, the strongest momentum coins beyond
// those, and every owned coin. Per-ticker failures are skipped; the scan
// never aborts because one market failed.
func (s *Scanner) Scan(ctx context.Context, owned map[string]bool, baseCount int) ([]Signal, error) {
	tickers, err := s.market.GetMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	s.log.Info().Int("markets", len(tickers)).Msg("scanning KRW markets")

	var candidates []Signal
	barsByTicker := make(map[string][]types.OHLCV)
	errCount := 0

	for _, ticker := range tickers {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		bars, err := s.market.GetDailyCandles(ctx, ticker, 5)
		if err != nil || len(bars) < 2 {
			errCount++
			continue
		}

		candidate := s.analyze(ticker, bars, owned[ticker])
		candidates = append(candidates, candidate)
		barsByTicker[ticker] = bars

		time.Sleep(s.scanPause)
	}

	s.log.Info().
		Int("processed", len(candidates)).
		Int("errors", errCount).
		Msg("market scan complete")

	selected := s.selectCandidates(candidates, owned, baseCount)

	// Let the external decision logic assign actions to the selection.
	if s.decider != nil {
		for i := range selected {
			selected[i].Action = s.decider.Decide(ctx, selected[i], barsByTicker[selected[i].Ticker])
		}
	}

	return selected, nil
}

// analyze computes momentum metrics for a single market from its recent bars.
func (s *Scanner) analyze(ticker string, bars []types.OHLCV, owned bool) Signal {
	latest := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	dailyChange := 0.0
	if prev.Close > 0 {
		dailyChange = (latest.Close - prev.Close) / prev.Close
	}

	currentValue := latest.Volume * latest.Close
	var avgValue float64
	for _, bar := range bars[:len(bars)-1] {
		avgValue += bar.Volume * bar.Close
	}
	avgValue /= float64(len(bars) - 1)
	volumeRatio := 0.0
	if avgValue > 0 {
		volumeRatio = currentValue / avgValue
	}

	sig := Signal{
		Ticker:       ticker,
		Action:       ActionHold,
		TradingValue: currentValue,
		CurrentPrice: latest.Close,
		DailyChange:  dailyChange,
		VolumeRatio:  volumeRatio,
		Owned:        owned,
	}

	if dailyChange > surgeThreshold {
		sig.IsMomentum = true
		score := dailyChange * 100
		sig.MomentumScore += score
		sig.Factors = append(sig.Factors, fmt.Sprintf("price surge %.1f%%", dailyChange*100))
	}

	if volumeRatio > volumeSpikeRatio {
		sig.IsMomentum = true
		score := volumeRatio * 10
		sig.MomentumScore += score
		sig.Factors = append(sig.Factors, fmt.Sprintf("volume spike %.1fx", volumeRatio))
	}

	priorHigh := 0.0
	for _, bar := range bars[:len(bars)-1] {
		if bar.High > priorHigh {
			priorHigh = bar.High
		}
	}
	if priorHigh > 0 && latest.Close > priorHigh*breakoutMargin {
		sig.IsMomentum = true
		sig.MomentumScore += breakoutScore
		sig.Factors = append(sig.Factors,
			fmt.Sprintf("breakout %.1f%% above 5d high", (latest.Close/priorHigh-1)*100))
	}

	return sig
}

// selectCandidates ranks by trading value and combines the top list with
// momentum and owned coins, deduplicated with first occurrence preserved.
func (s *Scanner) selectCandidates(candidates []Signal, owned map[string]bool, baseCount int) []Signal {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].TradingValue > candidates[j].TradingValue
	})
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	top := candidates
	if len(top) > baseCount {
		top = candidates[:baseCount]
	}

	var momentum []Signal
	for _, c := range candidates[min(baseCount, len(candidates)):] {
		if c.IsMomentum {
			momentum = append(momentum, c)
		}
	}
	sort.Slice(momentum, func(i, j int) bool {
		return momentum[i].MomentumScore > momentum[j].MomentumScore
	})
	if len(momentum) > momentumTakeCount {
		momentum = momentum[:momentumTakeCount]
	}

	var ownedExtra []Signal
	for _, c := range candidates[min(baseCount, len(candidates)):] {
		if c.Owned {
			ownedExtra = append(ownedExtra, c)
		}
	}

	seen := make(map[string]bool)
	var selection []Signal
	for _, group := range [][]Signal{top, momentum, ownedExtra} {
		for _, c := range group {
			if !seen[c.Ticker] {
				seen[c.Ticker] = true
				selection = append(selection, c)
			}
		}
	}

	s.log.Info().
		Int("selected", len(selection)).
		Int("momentum", len(momentum)).
		Msg("candidates selected")
	return selection
}
