package reconcile

import (
	"fmt"
	"log"
	"strings"
)

type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// maxRemarkReasons caps how many distinct row statuses are quoted in Remarks.
const maxRemarkReasons = 3

// ColumnMismatch counts failing rows per column.
type ColumnMismatch struct {
	Column string `json:"column"`
	Rows   int    `json:"rows"`
}

// Report is the outcome of one reconciliation.
type Report struct {
	Tolerance float64     `json:"tolerance"`
	Columns   []string    `json:"columns"`
	Rows      []RowResult `json:"rows"`

	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"` // percent

	Verdict           Verdict          `json:"verdict"`
	Remarks           string           `json:"remarks"`
	MismatchedColumns []ColumnMismatch `json:"mismatched_columns"`
}

func (r *Report) summarize() {
	r.Total = len(r.Rows)
	r.Passed, r.Failed = 0, 0
	r.MismatchedColumns = nil

	perColumn := map[string]int{}
	var reasons []string
	seen := map[string]bool{}
	for _, row := range r.Rows {
		if row.AllMatch() {
			r.Passed++
			continue
		}
		r.Failed++
		if !seen[row.Status] {
			seen[row.Status] = true
			reasons = append(reasons, row.Status)
		}
		for _, col := range row.Mismatches() {
			perColumn[col]++
		}
	}
	for _, col := range r.Columns {
		if n := perColumn[col]; n > 0 {
			r.MismatchedColumns = append(r.MismatchedColumns, ColumnMismatch{Column: col, Rows: n})
		}
	}

	if r.Total > 0 {
		r.SuccessRate = float64(r.Passed) / float64(r.Total) * 100
	} else {
		r.SuccessRate = 0
	}

	if r.Total == 0 {
		r.Verdict = VerdictFail
		r.Remarks = "No records compared"
		return
	}
	if r.Failed == 0 {
		r.Verdict = VerdictPass
		r.Remarks = "All ledger calculations are correct"
		return
	}
	r.Verdict = VerdictFail
	quoted := reasons
	more := ""
	if len(quoted) > maxRemarkReasons {
		quoted = quoted[:maxRemarkReasons]
		more = "..."
	}
	r.Remarks = fmt.Sprintf("Mismatches found in %d records. Issues: %s%s", r.Failed, strings.Join(quoted, ", "), more)
}

func (r Report) Pass() bool { return r.Verdict == VerdictPass }

// Log writes the run summary and the per-day mismatch analysis.
func (r Report) Log(logger *log.Logger) {
	if logger == nil {
		return
	}
	if len(r.MismatchedColumns) == 0 {
		logger.Printf("All columns match perfectly!")
	} else {
		logger.Printf("Mismatched Columns:")
		for _, c := range r.MismatchedColumns {
			logger.Printf("  - %s (%d rows)", c.Column, c.Rows)
		}
		for _, row := range r.Rows {
			if !row.AllMatch() {
				logger.Printf("Date: %s - Status: %s", row.Date.Format("2006-01-02"), row.Status)
			}
		}
	}
	logger.Printf("Test Case Result: %s", r.Verdict)
	logger.Printf("Total Records: %d", r.Total)
	logger.Printf("Passed Records: %d", r.Passed)
	logger.Printf("Failed Records: %d", r.Failed)
	logger.Printf("Success Rate: %.4f%%", r.SuccessRate)
	logger.Printf("Remarks: %s", r.Remarks)
}
