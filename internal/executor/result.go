package executor

import "fmt"

// Outcome is the result of submitting an order intent. It is a tagged
// variant so callers pattern-match instead of probing optional fields:
// Pending carries an order id for async tracking, Filled carries an
// immediately-known fill, Failed carries a structured reason.
type Outcome interface {
	isOutcome()
}

// Pending means the order was accepted by the exchange and should be
// tracked to a terminal state by the order monitor.
type Pending struct {
	OrderID        string
	PriceEstimate  float64 // execution-time price estimate
	AmountEstimate float64 // estimated base amount
}

// Filled means the fill is already known (used by slicing strategies
// that observe their own fills).
type Filled struct {
	Price  float64
	Amount float64
}

// Failed means the intent could not be executed.
type Failed struct {
	Reason string
	Err    error
}

func (Pending) isOutcome() {}
func (Filled) isOutcome()  {}
func (Failed) isOutcome()  {}

func (f Failed) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Reason, f.Err)
	}
	return f.Reason
}

// Fail builds a Failed outcome.
func Fail(reason string, err error) Failed {
	return Failed{Reason: reason, Err: err}
}
