package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExcelReporter writes cycle reports to an xlsx workbook with one sheet
// for positions and one for trades.
type ExcelReporter struct{}

func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header  int
	krw     int
	percent int
}

// WriteCycleXLSX writes a cycle report workbook at path, creating parent
// directories as needed.
func (r *ExcelReporter) WriteCycleXLSX(report *CycleReport, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const positionsSheet = "Positions"
	const tradesSheet = "Trades"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	fx.NewSheet(positionsSheet)
	fx.NewSheet(tradesSheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, report, styles); err != nil {
		return err
	}
	if err := r.writePositionsSheet(fx, positionsSheet, report.Positions, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, report.Trades, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.krw, err = fx.NewStyle(&excelize.Style{
		NumFmt: 3, // #,##0
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.percent, err = fx.NewStyle(&excelize.Style{
		NumFmt: 2, // 0.00
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, report *CycleReport, styles excelStyles) error {
	rows := [][]interface{}{
		{"Cycle", report.Kind},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05")},
		{"Duration", report.Duration.String()},
		{"Portfolio Value (KRW)", report.PortfolioValueKRW},
		{"Available KRW", report.AvailableKRW},
		{"Positions", len(report.Positions)},
		{"Trades", len(report.Trades)},
		{"Alerts", len(report.Alerts)},
		{"Errors", len(report.Errors)},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	fx.SetColWidth(sheet, "A", "A", 24)
	fx.SetColWidth(sheet, "B", "B", 24)
	return nil
}

func (r *ExcelReporter) writePositionsSheet(fx *excelize.File, sheet string, positions []PositionReport, styles excelStyles) error {
	header := []interface{}{"Ticker", "Price", "Market Value", "P/L %", "ATR %", "Stop Loss", "Take Profit", "Risk %", "Trigger"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := fx.SetRowStyle(sheet, 1, 1, styles.header); err != nil {
		return err
	}

	for i, p := range positions {
		row := []interface{}{
			p.Ticker, p.CurrentPrice, p.MarketValue, p.ProfitLossPct,
			p.ATRPercent, p.StopLoss, p.TakeProfit, p.PositionRiskPct, p.Triggered,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if len(positions) > 0 {
		fx.SetCellStyle(sheet, "B2", fmt.Sprintf("C%d", len(positions)+1), styles.krw)
		fx.SetCellStyle(sheet, "D2", fmt.Sprintf("E%d", len(positions)+1), styles.percent)
		fx.SetCellStyle(sheet, "F2", fmt.Sprintf("G%d", len(positions)+1), styles.krw)
	}
	fx.SetColWidth(sheet, "A", "I", 14)
	return nil
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, trades []TradeRecord, styles excelStyles) error {
	header := []interface{}{"Ticker", "Side", "Result", "Price", "Amount", "KRW Value", "P/L %", "Reason"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := fx.SetRowStyle(sheet, 1, 1, styles.header); err != nil {
		return err
	}

	for i, tr := range trades {
		row := []interface{}{
			tr.Ticker, tr.Side, tr.Result, tr.Price, tr.Amount,
			tr.KRWValue, tr.ProfitPct, tr.Reason,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if len(trades) > 0 {
		fx.SetCellStyle(sheet, "D2", fmt.Sprintf("D%d", len(trades)+1), styles.krw)
		fx.SetCellStyle(sheet, "F2", fmt.Sprintf("F%d", len(trades)+1), styles.krw)
		fx.SetCellStyle(sheet, "G2", fmt.Sprintf("G%d", len(trades)+1), styles.percent)
	}
	fx.SetColWidth(sheet, "A", "H", 14)
	return nil
}
