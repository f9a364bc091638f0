package data

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"prepaid-reconcile/internal/model"
)

// LoadLedgerXLSX reads a ledger sheet exported by the billing engine or by
// download-ledger. An empty sheet name selects the first sheet.
func LoadLedgerXLSX(path, sheet string) ([]model.LedgerRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readLedgerSheet(f, sheet)
}

func ReadLedgerXLSX(r io.Reader, sheet string) ([]model.LedgerRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readLedgerSheet(f, sheet)
}

func readLedgerSheet(f *excelize.File, sheet string) ([]model.LedgerRow, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrUnexpectedFormat
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s: %w", sheet, ErrUnexpectedFormat)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	out := make([]model.LedgerRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		rec := make(map[string]any, len(header))
		for j, name := range header {
			if j < len(cells) {
				rec[name] = cells[j]
			}
		}
		row, err := decodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
		}
		row.Day = len(out) + 1
		out = append(out, row)
	}
	return out, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
