package risk

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/exchange"
	"github.com/jaewoo-dev/upbit-trading-bot/pkg/types"
)

// entryWindow is the number of recent bars used to estimate the entry price.
const entryWindow = 3

// Calculator derives exit levels from recent price history. It holds no
// per-symbol state: every evaluation starts from fresh data.
type Calculator struct {
	cfg    config.RiskConfig
	market exchange.MarketDataProvider
	log    zerolog.Logger
}

// NewCalculator creates a risk calculator.
func NewCalculator(cfg config.RiskConfig, market exchange.MarketDataProvider, log zerolog.Logger) *Calculator {
	return &Calculator{
		cfg:    cfg,
		market: market,
		log:    log.With().Str("component", "risk").Logger(),
	}
}

// CalculateATR computes the Average True Range over the given period:
// the simple moving average of per-bar True Range. True Range needs the
// previous close, so at least period+1 bars (oldest first) are required;
// with fewer it returns 0, which callers must treat as "unknown" and
// substitute a price-percentage fallback.
func CalculateATR(bars []types.OHLCV, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}

	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += trueRange(bars[i], bars[i-1].Close)
	}
	return sum / float64(period)
}

func trueRange(bar types.OHLCV, prevClose float64) float64 {
	hl := bar.High - bar.Low
	hc := math.Abs(bar.High - prevClose)
	lc := math.Abs(bar.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// EstimateEntryPrice approximates the unknown cost basis as the midpoint of
// the minimum low and maximum high over the most recent bars. The system
// does not track actual fills, so this is a deliberate statistical
// approximation, not an exact cost basis.
func EstimateEntryPrice(bars []types.OHLCV) float64 {
	if len(bars) == 0 {
		return 0
	}

	window := bars
	if len(bars) > entryWindow {
		window = bars[len(bars)-entryWindow:]
	}

	low := window[0].Low
	high := window[0].High
	for _, bar := range window[1:] {
		if bar.Low < low {
			low = bar.Low
		}
		if bar.High > high {
			high = bar.High
		}
	}
	return (low + high) / 2
}

// ComputeLevels derives the exit levels for a position from an ATR value and
// an estimated entry price. The stop only ever ratchets upward within a
// single evaluation: when price has cleared the trailing activation, the
// trailing stop replaces the fixed stop if it is higher.
func (c *Calculator) ComputeLevels(pos Position, atr, estimatedEntry, totalPortfolioValue float64) Levels {
	stopLoss := estimatedEntry - atr*c.cfg.StopMultiplier
	takeProfit := estimatedEntry + atr*c.cfg.ProfitMultiplier
	trailingActivation := estimatedEntry + atr*c.cfg.TrailMultiplier

	if pos.CurrentPrice > trailingActivation {
		trailingStop := pos.CurrentPrice - atr*c.cfg.StopMultiplier
		stopLoss = math.Max(stopLoss, trailingStop)
	}
	stopLoss = math.Max(stopLoss, 0)

	levels := Levels{
		ATR:                atr,
		EstimatedEntry:     estimatedEntry,
		StopLoss:           stopLoss,
		TakeProfit:         takeProfit,
		TrailingActivation: trailingActivation,
	}

	if pos.CurrentPrice > 0 {
		levels.ATRPercent = atr / pos.CurrentPrice * 100
		levels.StopDistancePct = (pos.CurrentPrice - stopLoss) / pos.CurrentPrice * 100
		levels.TargetDistancePct = (takeProfit - pos.CurrentPrice) / pos.CurrentPrice * 100
	}
	if estimatedEntry > 0 {
		levels.ProfitLossPercent = (pos.CurrentPrice - estimatedEntry) / estimatedEntry * 100
	}
	if totalPortfolioValue > 0 {
		levels.PositionRiskPct = pos.MarketValue / totalPortfolioValue * 100
	}

	return levels
}

// EvaluatePosition fetches history for a position and derives its levels.
// When ATR cannot be computed from the available history, a fallback of
// FallbackATRPercent of the current price is substituted so levels are
// always defined.
func (c *Calculator) EvaluatePosition(ctx context.Context, pos Position, totalPortfolioValue float64) (Levels, error) {
	bars, err := c.market.GetDailyCandles(ctx, pos.Ticker, c.cfg.ATRPeriod+5)
	if err != nil {
		return Levels{}, fmt.Errorf("failed to fetch history for %s: %w", pos.Ticker, err)
	}

	atr := CalculateATR(bars, c.cfg.ATRPeriod)
	if atr == 0 {
		atr = pos.CurrentPrice * c.cfg.FallbackATRPercent
		c.log.Warn().
			Str("ticker", pos.Ticker).
			Float64("fallback_atr", atr).
			Msg("insufficient history for ATR, using price-based fallback")
	}

	estimatedEntry := EstimateEntryPrice(bars)
	if estimatedEntry == 0 {
		estimatedEntry = pos.CurrentPrice
	}

	return c.ComputeLevels(pos, atr, estimatedEntry, totalPortfolioValue), nil
}

// EvaluateTriggers decides whether a position should be liquidated.
// Stop-loss has priority when both conditions hold.
func (c *Calculator) EvaluateTriggers(pos Position, levels Levels) Trigger {
	if pos.CurrentPrice <= levels.StopLoss {
		c.log.Warn().
			Str("ticker", pos.Ticker).
			Float64("price", pos.CurrentPrice).
			Float64("stop_loss", levels.StopLoss).
			Float64("pnl_pct", levels.ProfitLossPercent).
			Msg("stop-loss triggered")
		return TriggerStopLoss
	}
	if pos.CurrentPrice >= levels.TakeProfit {
		c.log.Info().
			Str("ticker", pos.Ticker).
			Float64("price", pos.CurrentPrice).
			Float64("take_profit", levels.TakeProfit).
			Float64("pnl_pct", levels.ProfitLossPercent).
			Msg("take-profit triggered")
		return TriggerTakeProfit
	}
	return TriggerNone
}

// CollectAlerts raises advisory alerts for a position that was not executed.
func (c *Calculator) CollectAlerts(pos Position, levels Levels) []Alert {
	var alerts []Alert
	if levels.ATRPercent > c.cfg.VolatilityAlertPct {
		alerts = append(alerts, Alert{
			Kind:    AlertHighVolatility,
			Ticker:  pos.Ticker,
			Message: fmt.Sprintf("High volatility %s: ATR %.1f%%", pos.Ticker, levels.ATRPercent),
		})
	}
	if levels.PositionRiskPct > c.cfg.ConcentrationAlertPct {
		alerts = append(alerts, Alert{
			Kind:    AlertConcentration,
			Ticker:  pos.Ticker,
			Message: fmt.Sprintf("Large position %s: %.1f%% of portfolio", pos.Ticker, levels.PositionRiskPct),
		})
	}
	return alerts
}
