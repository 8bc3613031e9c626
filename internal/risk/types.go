package risk

// Position is a held asset, refreshed from the exchange every cycle.
type Position struct {
	Ticker       string  // market ticker, e.g. "KRW-BTC"
	Currency     string  // base currency, e.g. "BTC"
	Free         float64 // sellable balance
	Locked       float64 // balance tied up in open orders
	CurrentPrice float64
	MarketValue  float64 // (free + locked) * current price
}

// TotalAmount returns the full held amount including locked balance.
func (p Position) TotalAmount() float64 {
	return p.Free + p.Locked
}

// Levels holds the volatility-derived exit levels for a position.
// Recomputed from scratch every monitoring cycle; never persisted.
type Levels struct {
	ATR                float64
	ATRPercent         float64
	EstimatedEntry     float64
	StopLoss           float64
	TakeProfit         float64
	TrailingActivation float64
	ProfitLossPercent  float64
	StopDistancePct    float64
	TargetDistancePct  float64
	PositionRiskPct    float64 // share of total portfolio value
}

// Trigger is the execution decision for a position.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerStopLoss
	TriggerTakeProfit
)

func (t Trigger) String() string {
	switch t {
	case TriggerStopLoss:
		return "STOP-LOSS"
	case TriggerTakeProfit:
		return "TAKE-PROFIT"
	default:
		return "NONE"
	}
}

// AlertKind classifies an advisory risk alert. Alerts never trigger
// execution on their own.
type AlertKind int

const (
	AlertHighVolatility AlertKind = iota
	AlertConcentration
)

// Alert is a non-blocking advisory raised during a monitoring pass.
type Alert struct {
	Kind    AlertKind
	Ticker  string
	Message string
}
