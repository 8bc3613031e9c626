package allocation

import (
	"github.com/rs/zerolog"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/signal"
)

// Allocator splits available capital across competing buy signals.
// All arithmetic is pure and deterministic given the same inputs.
type Allocator struct {
	cfg config.TradingConfig
	log zerolog.Logger
}

// NewAllocator creates a capital allocator.
func NewAllocator(cfg config.TradingConfig, log zerolog.Logger) *Allocator {
	return &Allocator{
		cfg: cfg,
		log: log.With().Str("component", "allocator").Logger(),
	}
}

// Allocate distributes availableKRW across buy signals. A fixed reserve
// fraction is kept untouched; the remainder is split 60/40 between momentum
// and regular signals (100% to whichever group is non-empty when the other
// is not). The momentum pool is weighted by momentum score, the regular
// pool equally. Allocations below the minimum order size are dropped and
// their capital is not redistributed.
func (a *Allocator) Allocate(availableKRW float64, signals []signal.Signal) map[string]float64 {
	allocations := make(map[string]float64)
	if len(signals) == 0 {
		a.log.Info().Msg("no buy signals to allocate capital")
		return allocations
	}

	tradeable := availableKRW * (1 - a.cfg.ReserveRatio)
	a.log.Info().Float64("tradeable_krw", tradeable).Int("signals", len(signals)).
		Msg("allocating capital")

	var momentum, regular []signal.Signal
	for _, s := range signals {
		if s.IsMomentum {
			momentum = append(momentum, s)
		} else {
			regular = append(regular, s)
		}
	}

	var momentumCapital, regularCapital float64
	switch {
	case len(momentum) > 0 && len(regular) > 0:
		momentumCapital = tradeable * a.cfg.MomentumRatio
		regularCapital = tradeable * (1 - a.cfg.MomentumRatio)
	case len(momentum) > 0:
		momentumCapital = tradeable
	default:
		regularCapital = tradeable
	}

	if len(momentum) > 0 && momentumCapital > 0 {
		totalScore := 0.0
		for _, s := range momentum {
			totalScore += s.MomentumScore
		}

		for _, s := range momentum {
			weight := 1 / float64(len(momentum))
			if totalScore > 0 {
				weight = s.MomentumScore / totalScore
			}
			amount := momentumCapital * weight
			if amount >= a.cfg.MinOrderSize {
				allocations[s.Ticker] = amount
			} else {
				a.log.Debug().Str("ticker", s.Ticker).Float64("amount", amount).
					Msg("momentum allocation below minimum order size, dropped")
			}
		}
	}

	if len(regular) > 0 && regularCapital > 0 {
		equal := regularCapital / float64(len(regular))
		for _, s := range regular {
			if equal >= a.cfg.MinOrderSize {
				allocations[s.Ticker] = equal
			} else {
				a.log.Debug().Str("ticker", s.Ticker).Float64("amount", equal).
					Msg("regular allocation below minimum order size, dropped")
			}
		}
	}

	return allocations
}
