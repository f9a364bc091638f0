package reconcile

import (
	"fmt"
	"log"

	"prepaid-reconcile/internal/ledger"
	"prepaid-reconcile/internal/model"
)

type Options struct {
	Tolerance float64
	// Columns defaults to the columns the tariff scheme produces.
	Columns []model.Column
	Logger  *log.Logger
}

// Outcome is one account's recomputed ledger and its comparison.
type Outcome struct {
	AccountID string
	Tariff    string
	Computed  []model.LedgerRow
	Actual    []model.LedgerRow
	Report    Report
}

// Run recomputes an upstream ledger from its own readings and compares the two.
// Errors come only from invalid tariffs or readings; mismatches land in the report.
func Run(cfg model.TariffConfig, actual []model.LedgerRow, opts Options) (*Outcome, error) {
	if len(actual) == 0 {
		return nil, &model.ValidationError{Field: "ledger", Reason: "no ledger rows to reconcile"}
	}
	cols := opts.Columns
	if len(cols) == 0 {
		cols = model.ColumnsFor(cfg.Scheme)
	}

	engine := &ledger.Engine{Logger: opts.Logger}
	res, err := engine.Run(cfg, model.ReadingsFromLedger(actual))
	if err != nil {
		return nil, fmt.Errorf("compute %s ledger: %w", cfg.Name, err)
	}
	computed := Annotate(res.Ledger, actual)

	rep := CompareColumns(computed, actual, cols, opts.Tolerance)
	rep.Log(opts.Logger)

	return &Outcome{
		AccountID: actual[0].AccountID,
		Tariff:    cfg.Name,
		Computed:  computed,
		Actual:    actual,
		Report:    rep,
	}, nil
}

// Annotate copies account and period metadata from actual onto computed rows
// at the same position.
func Annotate(computed, actual []model.LedgerRow) []model.LedgerRow {
	out := make([]model.LedgerRow, len(computed))
	copy(out, computed)
	for i := range out {
		if i >= len(actual) {
			break
		}
		a := actual[i]
		out[i].AccountID = a.AccountID
		out[i].MeterNumber = a.MeterNumber
		out[i].SupplyTypeCode = a.SupplyTypeCode
		if !a.EndDateTime.IsZero() {
			out[i].EndDateTime = a.EndDateTime
		}
	}
	return out
}
