package reconcile

import (
	"math"
	"strings"
	"time"

	"prepaid-reconcile/internal/model"
)

const (
	// DefaultTolerance is the largest absolute difference still counted as a match.
	DefaultTolerance = 0.01

	StatusAllMatch      = "All Match"
	StatusMissingActual = "missing actual row"
	StatusMissingExpect = "missing expected row"
)

// Cell is one compared value.
type Cell struct {
	Column   string  `json:"column"`
	Actual   float64 `json:"actual"`
	Expected float64 `json:"expected"`
	Match    bool    `json:"match"`
}

// RowResult is the comparison of one ledger day.
type RowResult struct {
	Index int       `json:"index"`
	Day   int       `json:"day"`
	Date  time.Time `json:"date"`

	Cells  []Cell `json:"cells"`
	Status string `json:"status"`
}

func (r RowResult) AllMatch() bool { return r.Status == StatusAllMatch }

// Mismatches lists the columns that failed on this row.
func (r RowResult) Mismatches() []string {
	var out []string
	for _, c := range r.Cells {
		if !c.Match {
			out = append(out, c.Column)
		}
	}
	return out
}

// Compare diffs computed against actual over every ledger column.
// Rows are aligned by position; a mismatch is reported, never returned as an error.
func Compare(computed, actual []model.LedgerRow, tolerance float64) Report {
	return CompareColumns(computed, actual, model.LedgerColumns, tolerance)
}

// CompareColumns is Compare restricted to cols.
func CompareColumns(computed, actual []model.LedgerRow, cols []model.Column, tolerance float64) Report {
	if tolerance < 0 || math.IsNaN(tolerance) {
		tolerance = 0
	}
	n := len(computed)
	if len(actual) > n {
		n = len(actual)
	}

	rep := Report{
		Tolerance: tolerance,
		Columns:   model.ColumnNames(cols),
		Rows:      make([]RowResult, 0, n),
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(actual):
			exp := &computed[i]
			rep.Rows = append(rep.Rows, RowResult{Index: i, Day: exp.Day, Date: exp.StartDateTime, Status: StatusMissingActual})
		case i >= len(computed):
			act := &actual[i]
			rep.Rows = append(rep.Rows, RowResult{Index: i, Day: i + 1, Date: act.StartDateTime, Status: StatusMissingExpect})
		default:
			rep.Rows = append(rep.Rows, compareRow(i, &computed[i], &actual[i], cols, tolerance))
		}
	}
	rep.summarize()
	return rep
}

func compareRow(i int, exp, act *model.LedgerRow, cols []model.Column, tolerance float64) RowResult {
	row := RowResult{
		Index: i,
		Day:   i + 1,
		Date:  act.StartDateTime,
		Cells: make([]Cell, 0, len(cols)),
	}
	if row.Date.IsZero() {
		row.Date = exp.StartDateTime
	}

	var bad []string
	for _, c := range cols {
		a := finite(c.Value(act))
		e := finite(c.Value(exp))
		ok := Within(a, e, tolerance)
		row.Cells = append(row.Cells, Cell{Column: c.Name, Actual: a, Expected: e, Match: ok})
		if !ok {
			bad = append(bad, c.Name)
		}
	}
	if len(bad) == 0 {
		row.Status = StatusAllMatch
	} else {
		row.Status = strings.Join(bad, ", ")
	}
	return row
}

// Within reports |a - b| <= tolerance.
func Within(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
