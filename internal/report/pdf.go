package report

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"prepaid-reconcile/internal/reconcile"
)

// maxPDFRows bounds the per-day table; a cycle never has more than 31 days.
const maxPDFRows = 31

// BuildSummaryPDF renders the verdict page for one reconciliation.
func BuildSummaryPDF(o *reconcile.Outcome, generated time.Time) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("outcome is nil")
	}
	rep := o.Report

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Prepaid Ledger Reconciliation")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Account: %s", o.AccountID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Tariff: %s", o.Tariff))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Result: %s", rep.Verdict))
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d total, %d passed, %d failed", rep.Total, rep.Passed, rep.Failed))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Success Rate: %.4f%%", rep.SuccessRate))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Tolerance: %g", rep.Tolerance))
	pdf.Ln(6)
	pdf.MultiCell(0, 5, "Remarks: "+rep.Remarks, "", "L", false)
	pdf.Ln(4)

	if len(rep.MismatchedColumns) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(100, 6, "Mismatched Column", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Rows", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, m := range rep.MismatchedColumns {
			pdf.CellFormat(100, 6, m.Column, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%d", m.Rows), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(25, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Final Charge", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Closing Balance", "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 8)
	for i, rr := range rep.Rows {
		if i >= maxPDFRows {
			break
		}
		final, closing := math.NaN(), math.NaN()
		if i < len(o.Computed) {
			final = o.Computed[i].DailyFinalCharge
			closing = o.Computed[i].ClosingBalance
		}
		status := rr.Status
		if len(status) > 60 {
			status = status[:57] + "..."
		}
		pdf.CellFormat(25, 5, rr.Date.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 5, fmtAmount(final), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 5, fmtAmount(closing), "1", 0, "R", false, 0, "")
		pdf.CellFormat(95, 5, status, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteSummaryPDF(path string, o *reconcile.Outcome, generated time.Time) error {
	raw, err := BuildSummaryPDF(o, generated)
	if err != nil {
		return err
	}
	return writeFile(path, raw)
}

func fmtAmount(x float64) string {
	if math.IsNaN(x) {
		return "-"
	}
	return decimal.NewFromFloat(x).StringFixed(4)
}

func round(x float64) float64 {
	return decimal.NewFromFloat(x).Round(4).InexactFloat64()
}
