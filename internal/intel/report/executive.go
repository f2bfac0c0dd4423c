// Package report renders the executive PDF and the reorder workbook.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
)

// Executive is the content of the executive report
type Executive struct {
	GeneratedAt time.Time
	KPIs        domain.DashboardKPIs
	LowStock    []domain.LowStockAlert
	Expiring    []domain.ExpiryBatch
	ExpiryLoss  *domain.ExpiryLossSummary
}

const (
	pageMargin = 15.0
	lineHeight = 7.0
)

// ExecutivePDF renders the executive report as an A4 PDF
func ExecutivePDF(r Executive) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetTitle("Smart Pharmacy Inventory Report", true)
	pdf.SetCreator("intel-service", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Smart Pharmacy Inventory Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated on: "+r.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "System: AI-Powered Pharmacy Inventory Management", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Key Indicators")
	kpis := [][2]string{
		{"Unique Medicines", fmt.Sprint(r.KPIs.UniqueMedicines)},
		{"Total Units in Stock", fmt.Sprint(r.KPIs.TotalUnits)},
		{"Low Stock Alerts", fmt.Sprint(r.KPIs.LowStock)},
		{"Expiring Soon (30 days)", fmt.Sprint(r.KPIs.ExpiringSoon)},
	}
	for _, kv := range kpis {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(80, lineHeight, kv[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, lineHeight, kv[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	section(pdf, "Low Stock Alerts")
	if len(r.LowStock) == 0 {
		note(pdf, "All stock levels are healthy")
	} else {
		header(pdf, []string{"Medicine", "Stock", "Severity"}, []float64{90, 30, 40})
		pdf.SetFont("Helvetica", "", 10)
		for _, a := range r.LowStock {
			pdf.CellFormat(90, lineHeight, a.Medicine, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, lineHeight, fmt.Sprint(a.Stock), "1", 0, "R", false, 0, "")
			pdf.CellFormat(40, lineHeight, a.Severity, "1", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	section(pdf, "Upcoming Expiries (FEFO)")
	if len(r.Expiring) == 0 {
		note(pdf, "No medicines are expiring soon")
	} else {
		header(pdf, []string{"Medicine", "Batch", "Days to Expiry"}, []float64{90, 40, 40})
		pdf.SetFont("Helvetica", "", 10)
		for _, b := range r.Expiring {
			pdf.CellFormat(90, lineHeight, b.DrugName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, lineHeight, b.Batch, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, lineHeight, fmt.Sprint(b.DaysToExpiry), "1", 1, "R", false, 0, "")
		}
	}

	if r.ExpiryLoss != nil && len(r.ExpiryLoss.Chart) > 0 {
		pdf.Ln(4)
		section(pdf, "Expiry Loss & Recovery")
		s := r.ExpiryLoss.Summary
		rows := [][2]string{
			{"Total value at risk", "Rs. " + s.TotalValue.StringFixed(2)},
			{"Recoverable value", "Rs. " + s.RecoverableValue.StringFixed(2)},
			{"Potential loss", "Rs. " + s.PotentialLoss.StringFixed(2)},
		}
		pdf.SetFont("Helvetica", "", 11)
		for _, kv := range rows {
			pdf.CellFormat(80, lineHeight, kv[0], "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, lineHeight, kv[1], "1", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render executive report: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
}

func note(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, lineHeight, text, "", 1, "L", false, 0, "")
}

func header(pdf *fpdf.Fpdf, cols []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], lineHeight, c, "1", ln, "L", true, 0, "")
	}
}
