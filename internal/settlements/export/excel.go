package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"greencycle/waste-portal/waste-portal-backend/internal/settlements"
)

// ExcelExporter writes a settlement listing to an xlsx workbook for
// treasury review.
type ExcelExporter struct {
	file      *excelize.File
	sheetName string
}

var columns = []string{
	"Token Code", "Owner", "Bank", "Account", "Location", "Material",
	"Weight (kg)", "Amount", "Status", "Bucket", "Flagged Reason", "Created", "Paid Out",
}

// NewExcelExporter creates an exporter with a single styled sheet.
func NewExcelExporter() *ExcelExporter {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", "Settlements")
	return &ExcelExporter{file: file, sheetName: "Settlements"}
}

func (e *ExcelExporter) writeHeader() error {
	styleID, err := e.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2E7D32"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		e.file.SetCellValue(e.sheetName, cell, col)
		e.file.SetCellStyle(e.sheetName, cell, cell, styleID)
	}
	return e.file.SetPanes(e.sheetName, &excelize.Panes{
		Freeze: true,
		YSplit: 1,
	})
}

func (e *ExcelExporter) writeRows(rows []settlements.Row) {
	for i, row := range rows {
		paidOut := ""
		if row.PaidOutAt != nil {
			paidOut = row.PaidOutAt.Format(time.RFC3339)
		}
		values := []interface{}{
			row.TokenCode, row.OwnerName, row.BankName, row.AccountNumber,
			row.Location, row.MaterialType,
			row.WeightKg.InexactFloat64(), row.Amount.InexactFloat64(),
			string(row.Status), string(row.Bucket), row.FlaggedReason,
			row.CreatedAt.Format(time.RFC3339), paidOut,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			e.file.SetCellValue(e.sheetName, cell, v)
		}
	}
}

func (e *ExcelExporter) writeSummary(summary settlements.Summary) {
	e.file.NewSheet("Summary")
	pairs := [][2]interface{}{
		{"Total Amount", summary.TotalAmount.InexactFloat64()},
		{"Pending Amount", summary.PendingAmount.InexactFloat64()},
		{"Settled Count", summary.SettledCount},
		{"Pending Count", summary.PendingCount},
		{"Flagged Count", summary.FlaggedCount},
		{"Avg Settlement (s)", summary.AvgSettlementSeconds},
	}
	for i, pair := range pairs {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valCell, _ := excelize.CoordinatesToCellName(2, i+1)
		e.file.SetCellValue("Summary", keyCell, pair[0])
		e.file.SetCellValue("Summary", valCell, pair[1])
	}
}

// Export writes the result as a complete workbook to w.
func (e *ExcelExporter) Export(result *settlements.Result, w io.Writer) error {
	if err := e.writeHeader(); err != nil {
		return err
	}
	e.writeRows(result.Rows)
	e.writeSummary(result.Summary)
	return e.file.Write(w)
}
