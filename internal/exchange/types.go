package exchange

import "time"

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "bid"
	SideSell OrderSide = "ask"
)

// OrderState is the exchange-reported lifecycle state of an order.
// Upbit reports "wait" while open, "done" when fully filled and "cancel"
// when cancelled. The monitor synthesizes "error", "timeout" and "unknown"
// terminal states on top of these.
type OrderState string

const (
	StateWait      OrderState = "wait"
	StateDone      OrderState = "done"
	StateCancelled OrderState = "cancel"
	StateError     OrderState = "error"
	StateTimeout   OrderState = "timeout"
	StateUnknown   OrderState = "unknown"
)

// Terminal reports whether the state will no longer change on the exchange.
func (s OrderState) Terminal() bool {
	switch s {
	case StateDone, StateCancelled, StateError, StateTimeout:
		return true
	}
	return false
}

// Order is the live or terminal snapshot of a submitted order.
type Order struct {
	ID              string
	Market          string
	Side            OrderSide
	State           OrderState
	Price           float64 // limit price, 0 for market orders
	Volume          float64 // requested base volume, 0 for market buys by amount
	RemainingVolume float64
	ExecutedVolume  float64
	AvgPrice        float64
	PaidFee         float64
	CreatedAt       time.Time
}

// FilledPercent returns the filled share of the requested volume, or 0 when
// the requested volume is unknown.
func (o *Order) FilledPercent() float64 {
	if o.Volume <= 0 {
		return 0
	}
	return (o.Volume - o.RemainingVolume) / o.Volume * 100
}
