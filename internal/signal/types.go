package signal

// Action is the trade decision attached to a signal.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal is a trade candidate produced by the scanner and consumed
// read-only by the allocator and the trade cycle.
type Signal struct {
	Ticker        string
	Action        Action
	IsMomentum    bool
	MomentumScore float64 // non-negative, higher = stronger
	Rank          int     // rank by 24h trading value, 1 = highest
	TradingValue  float64 // 24h traded value in KRW
	CurrentPrice  float64
	DailyChange   float64  // fractional daily change, e.g. 0.12 = +12%
	VolumeRatio   float64  // current volume vs recent average
	Factors       []string // human-readable momentum factors
	Owned         bool
}
