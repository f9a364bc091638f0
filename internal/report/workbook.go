package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"prepaid-reconcile/internal/model"
	"prepaid-reconcile/internal/reconcile"
)

const (
	LedgerSheet  = "Prepaid_Ledger"
	SummarySheet = "Summary"

	maxSheetName = 31
)

var metadataHeader = []string{"start_date_time", "end_date_time", "account_id", "meter_number"}

// BuildComparisonXLSX renders the actual ledger next to the recomputed one:
// every compared column is followed by expected_<column>, then Status.
func BuildComparisonXLSX(o *reconcile.Outcome) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("outcome is nil")
	}
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", LedgerSheet)
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, err
	}

	bad, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	header := append([]string{}, metadataHeader...)
	for _, col := range o.Report.Columns {
		header = append(header, col, "expected_"+col)
	}
	header = append(header, "Status")
	if err := setRow(f, LedgerSheet, 1, toAny(header)); err != nil {
		return nil, err
	}
	_ = f.SetRowStyle(LedgerSheet, 1, 1, bold)

	for i, rr := range o.Report.Rows {
		excelRow := i + 2
		var act, exp *model.LedgerRow
		if i < len(o.Actual) {
			act = &o.Actual[i]
		}
		if i < len(o.Computed) {
			exp = &o.Computed[i]
		}
		meta := act
		if meta == nil {
			meta = exp
		}

		values := []any{
			fmtTime(meta.StartDateTime),
			fmtTime(meta.EndDateTime),
			meta.AccountID,
			meta.MeterNumber,
		}
		cells := map[string]reconcile.Cell{}
		for _, c := range rr.Cells {
			cells[c.Column] = c
		}
		for _, col := range o.Report.Columns {
			c, ok := cells[col]
			if !ok {
				values = append(values, nil, nil)
				continue
			}
			values = append(values, round(c.Actual), round(c.Expected))
		}
		values = append(values, rr.Status)
		if err := setRow(f, LedgerSheet, excelRow, values); err != nil {
			return nil, err
		}

		for j, col := range o.Report.Columns {
			if c, ok := cells[col]; ok && c.Match {
				continue
			}
			first, _ := excelize.CoordinatesToCellName(len(metadataHeader)+2*j+1, excelRow)
			last, _ := excelize.CoordinatesToCellName(len(metadataHeader)+2*j+2, excelRow)
			_ = f.SetCellStyle(LedgerSheet, first, last, bad)
		}
	}

	writeSummary(f, o, bold)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, o *reconcile.Outcome, bold int) {
	rep := o.Report
	rows := [][]any{
		{"Test Case Result", string(rep.Verdict)},
		{"Tariff", o.Tariff},
		{"Account ID", o.AccountID},
		{"Total Records", rep.Total},
		{"Passed Records", rep.Passed},
		{"Failed Records", rep.Failed},
		{"Success Rate (%)", round(rep.SuccessRate)},
		{"Tolerance", rep.Tolerance},
		{"Remarks", rep.Remarks},
	}
	for i, r := range rows {
		_ = setRow(f, SummarySheet, i+1, r)
	}
	_ = f.SetColStyle(SummarySheet, "A", bold)

	if len(rep.MismatchedColumns) == 0 {
		return
	}
	start := len(rows) + 2
	_ = setRow(f, SummarySheet, start, []any{"Mismatched Column", "Rows"})
	for i, m := range rep.MismatchedColumns {
		_ = setRow(f, SummarySheet, start+i+1, []any{m.Column, m.Rows})
	}
}

func WriteComparisonXLSX(path string, o *reconcile.Outcome) error {
	raw, err := BuildComparisonXLSX(o)
	if err != nil {
		return err
	}
	return writeFile(path, raw)
}

// AccountSheet is one account's downloaded ledger.
type AccountSheet struct {
	Name string
	Rows []model.LedgerRow
}

// BuildLedgerXLSX writes one sheet per account with the raw upstream columns.
func BuildLedgerXLSX(sheets []AccountSheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets to write")
	}
	f := excelize.NewFile()
	defer f.Close()

	header := append([]string{}, metadataHeader...)
	header = append(header, model.ColumnNames(model.LedgerColumns)...)

	used := map[string]bool{}
	for i, s := range sheets {
		name := sheetName(s.Name, used)
		if i == 0 {
			f.SetSheetName("Sheet1", name)
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		if err := setRow(f, name, 1, toAny(header)); err != nil {
			return nil, err
		}
		for j := range s.Rows {
			r := &s.Rows[j]
			values := []any{fmtTime(r.StartDateTime), fmtTime(r.EndDateTime), r.AccountID, r.MeterNumber}
			for _, c := range model.LedgerColumns {
				values = append(values, c.Value(r))
			}
			if err := setRow(f, name, j+2, values); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteLedgerXLSX(path string, sheets []AccountSheet) error {
	raw, err := BuildLedgerXLSX(sheets)
	if err != nil {
		return err
	}
	return writeFile(path, raw)
}

// sheetName trims to Excel's limit and disambiguates repeats.
func sheetName(name string, used map[string]bool) string {
	if name == "" {
		name = "Sheet"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	base := name
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		cut := base
		if len(cut)+len(suffix) > maxSheetName {
			cut = cut[:maxSheetName-len(suffix)]
		}
		name = cut + suffix
	}
	used[name] = true
	return name
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func writeFile(path string, raw []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, raw, 0644)
}
