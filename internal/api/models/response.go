package models

import (
	"time"

	"prepaid-reconcile/internal/model"
	"prepaid-reconcile/internal/reconcile"
	"prepaid-reconcile/internal/tariff"
)

// ComputeResponse represents the response from billing a cycle
type ComputeResponse struct {
	Tariff         string                    `json:"tariff"`
	Scheme         string                    `json:"scheme"`
	Days           int                       `json:"days"`
	ClosingBalance float64                   `json:"closing_balance"`
	Transition     tariff.TransitionProgress `json:"transition"`
	Ledger         []model.LedgerRow         `json:"ledger"`
}

// ReconcileResponse summarizes one reconciliation run
type ReconcileResponse struct {
	ID                string                     `json:"id,omitempty"`
	AccountID         string                     `json:"account_id"`
	Tariff            string                     `json:"tariff"`
	CreatedAt         time.Time                  `json:"created_at,omitempty"`
	Verdict           reconcile.Verdict          `json:"verdict"`
	Total             int                        `json:"total"`
	Passed            int                        `json:"passed"`
	Failed            int                        `json:"failed"`
	SuccessRate       float64                    `json:"success_rate"`
	Tolerance         float64                    `json:"tolerance"`
	Remarks           string                     `json:"remarks"`
	MismatchedColumns []reconcile.ColumnMismatch `json:"mismatched_columns,omitempty"`
	Rows              []reconcile.RowResult      `json:"rows,omitempty"`
}

// TariffInfo represents information about a tariff preset
type TariffInfo struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	File   string      `json:"file"`
	Scheme string      `json:"scheme"`
	Specs  TariffSpecs `json:"specs"`
}

// TariffSpecs contains the headline numbers of a preset
type TariffSpecs struct {
	ContractedLoadKW float64 `json:"contracted_load_kw"`
	DaysInMonth      int     `json:"days_in_month"`
	Tiers            int     `json:"tiers"`
	OpeningBalance   float64 `json:"opening_balance"`
}

// ColumnsResponse lists the compared ledger columns
type ColumnsResponse struct {
	Columns []string            `json:"columns"`
	Schemes map[string][]string `json:"schemes"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
