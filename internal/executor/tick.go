package executor

import "math"

// TickSize returns the minimum price increment Upbit accepts at a given
// price level. The tick is a step function of price magnitude.
func TickSize(price float64) float64 {
	switch {
	case price >= 1_000_000:
		return 1000
	case price >= 100_000:
		return 100
	case price >= 10_000:
		return 10
	case price >= 1_000:
		return 1
	case price >= 100:
		return 0.1
	default:
		return 0.01
	}
}

// RoundToTick rounds a price to the nearest valid tick for its magnitude.
func RoundToTick(price float64) float64 {
	tick := TickSize(price)
	return math.Round(price/tick) * tick
}
