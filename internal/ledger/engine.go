package ledger

import (
	"fmt"
	"log"

	"prepaid-reconcile/internal/model"
	"prepaid-reconcile/internal/tariff"
)

type Engine struct {
	// Logger receives the per-day calculation trace. Nil disables it.
	Logger *log.Logger
}

func New() *Engine { return &Engine{} }

// Result is one billed cycle.
type Result struct {
	Ledger         []model.LedgerRow
	Final          State
	ClosingBalance float64
	Transition     tariff.TransitionProgress
}

// Run bills a whole cycle. The tariff and every record are validated before
// the first day is computed, so an error means no rows were produced.
func (e *Engine) Run(cfg model.TariffConfig, records []model.ConsumptionRecord) (*Result, error) {
	m, err := NewMachine(cfg, e.Logger)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateRecords(records); err != nil {
		return nil, err
	}
	if len(records) > cfg.DaysInMonth {
		return nil, &model.ValidationError{
			Field:  "records",
			Reason: fmt.Sprintf("%d records for a %d-day cycle", len(records), cfg.DaysInMonth),
		}
	}

	ledger := make([]model.LedgerRow, 0, len(records))
	for _, rec := range records {
		row, err := m.Step(rec)
		if err != nil {
			return nil, err
		}
		ledger = append(ledger, row)
	}
	final := m.State()

	return &Result{
		Ledger:         ledger,
		Final:          final,
		ClosingBalance: round4(final.Balance),
		Transition:     final.Transition,
	}, nil
}

// Compute bills a cycle without tracing and returns only the ledger.
func Compute(cfg model.TariffConfig, records []model.ConsumptionRecord) ([]model.LedgerRow, error) {
	res, err := New().Run(cfg, records)
	if err != nil {
		return nil, err
	}
	return res.Ledger, nil
}
