package reporting

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ConsoleReporter renders cycle reports as rounded tables.
type ConsoleReporter struct {
	out io.Writer
}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo renders to an arbitrary writer.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// PrintCycle renders the cycle summary, positions, and trades.
func (c *ConsoleReporter) PrintCycle(report *CycleReport) {
	c.printSummary(report)
	if len(report.Positions) > 0 {
		c.printPositions(report.Positions)
	}
	if len(report.Trades) > 0 {
		c.printTrades(report.Trades)
	}
	for _, alert := range report.Alerts {
		fmt.Fprintf(c.out, "⚠️  %s\n", alert)
	}
	for _, errMsg := range report.Errors {
		fmt.Fprintf(c.out, "🚨 %s\n", errMsg)
	}
	fmt.Fprintln(c.out)
}

func (c *ConsoleReporter) printSummary(report *CycleReport) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetTitle("CYCLE SUMMARY")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🔄 Cycle", report.Kind},
		{"⏰ Started", report.StartedAt.Format("2006-01-02 15:04:05")},
		{"⏱ Duration", report.Duration.Round(time.Millisecond).String()},
		{"💰 Portfolio Value", FormatKRW(report.PortfolioValueKRW)},
		{"💵 Available KRW", FormatKRW(report.AvailableKRW)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
}

func (c *ConsoleReporter) printPositions(positions []PositionReport) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetTitle("POSITIONS")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Ticker", "Price", "Value", "P/L %", "ATR %", "Stop", "Target", "Risk %", "Trigger"})
	for _, p := range positions {
		t.AppendRow(table.Row{
			p.Ticker,
			groupDigits(p.CurrentPrice),
			groupDigits(p.MarketValue),
			fmt.Sprintf("%+.2f", p.ProfitLossPct),
			fmt.Sprintf("%.2f", p.ATRPercent),
			groupDigits(p.StopLoss),
			groupDigits(p.TakeProfit),
			fmt.Sprintf("%.2f", p.PositionRiskPct),
			p.Triggered,
		})
	}

	t.Render()
}

func (c *ConsoleReporter) printTrades(trades []TradeRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetTitle("TRADES")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Ticker", "Side", "Result", "Price", "Amount", "KRW", "P/L %", "Reason"})
	for _, tr := range trades {
		t.AppendRow(table.Row{
			tr.Ticker,
			tr.Side,
			tr.Result,
			groupDigits(tr.Price),
			fmt.Sprintf("%.6f", tr.Amount),
			groupDigits(tr.KRWValue),
			fmt.Sprintf("%+.2f", tr.ProfitPct),
			tr.Reason,
		})
	}

	t.Render()
}

// FormatKRW renders a KRW amount with digit grouping and unit suffix.
func FormatKRW(amount float64) string {
	return groupDigits(amount) + " KRW"
}

// groupDigits inserts thousands separators into a rounded whole number.
func groupDigits(v float64) string {
	n := int64(math.Round(v))
	negative := n < 0
	if negative {
		n = -n
	}

	s := strconv.FormatInt(n, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if negative {
		s = "-" + s
	}
	return s
}
