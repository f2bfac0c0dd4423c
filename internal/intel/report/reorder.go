package report

import (
	"fmt"
	"time"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/xuri/excelize/v2"
)

// ReorderSheet is the worksheet holding the reorder rows
const ReorderSheet = "Reorder"

var reorderColumns = []string{"Medicine", "Stock", "Status", "Nearest Expiry (days)", "Suggested Action"}

// SuggestedAction is the purchasing advice for a stock status
func SuggestedAction(status domain.StockStatus) string {
	switch status {
	case domain.StatusCritical:
		return "Reorder immediately"
	case domain.StatusLow:
		return "Plan reorder"
	default:
		return "No action"
	}
}

// ReorderWorkbook renders enriched inventory rows as an XLSX workbook
func ReorderWorkbook(rows []domain.EnrichedInventoryItem, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReorderSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, name := range reorderColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(ReorderSheet, cell, name)
	}
	last, _ := excelize.CoordinatesToCellName(len(reorderColumns), 1)
	if err := f.SetCellStyle(ReorderSheet, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		r := i + 2
		values := []interface{}{row.Medicine, row.Stock, string(row.Status), "", SuggestedAction(row.Status)}
		if row.DaysToExpiry != nil {
			values[3] = *row.DaysToExpiry
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			f.SetCellValue(ReorderSheet, cell, v)
		}
	}

	f.SetColWidth(ReorderSheet, "A", "A", 28)
	f.SetColWidth(ReorderSheet, "D", "E", 22)
	f.SetDocProps(&excelize.DocProperties{
		Title:   "Reorder Report",
		Creator: "intel-service",
		Created: generatedAt.UTC().Format(time.RFC3339),
	})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
