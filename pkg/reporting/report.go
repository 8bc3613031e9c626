// Package reporting renders trading cycle results to the console and to
// Excel files for offline review.
package reporting

import "time"

// TradeRecord is one order attempt and its terminal outcome within a cycle.
type TradeRecord struct {
	Ticker    string
	Side      string // buy or sell
	Result    string // filled, pending, timeout, cancelled, failed
	Price     float64
	Amount    float64
	KRWValue  float64
	ProfitPct float64 // realized, sells only
	Reason    string  // trigger or failure description
}

// PositionReport is the risk snapshot of one holding.
type PositionReport struct {
	Ticker          string
	CurrentPrice    float64
	MarketValue     float64
	ProfitLossPct   float64
	ATRPercent      float64
	StopLoss        float64
	TakeProfit      float64
	PositionRiskPct float64
	Triggered       string
}

// CycleReport aggregates everything that happened in one cycle.
type CycleReport struct {
	Kind              string // risk or trade
	StartedAt         time.Time
	Duration          time.Duration
	PortfolioValueKRW float64
	AvailableKRW      float64
	Positions         []PositionReport
	Trades            []TradeRecord
	Alerts            []string
	Errors            []string
}
