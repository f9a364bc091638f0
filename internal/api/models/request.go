package models

import (
	"encoding/json"

	"prepaid-reconcile/internal/config"
)

// TariffSelector picks a preset and/or an inline tariff.
// When both are set, non-zero inline fields override the preset.
type TariffSelector struct {
	Preset string               `json:"preset,omitempty"` // file name without extension, e.g. "formula_102"
	Tariff *config.TariffConfig `json:"tariff,omitempty"`
}

// ComputeRequest represents the request body for billing a cycle
type ComputeRequest struct {
	TariffSelector
	// [{date, daily_consumption, max_demand}, ...]; dates may be YYYY-MM-DD.
	Readings json.RawMessage `json:"readings" binding:"required"`
}

// ReconcileRequest represents the request body for a reconciliation run.
// Either Ledger (inline upstream rows) or AccountID plus a window is required.
type ReconcileRequest struct {
	TariffSelector

	AccountID string `json:"account_id,omitempty"`
	Start     string `json:"start,omitempty"` // inclusive; RFC3339, zoneless timestamp or YYYY-MM-DD
	End       string `json:"end,omitempty"`   // exclusive

	// Raw daily_prepaid_ledger body: a list or {"data": [...]}.
	Ledger json.RawMessage `json:"ledger,omitempty"`

	Tolerance   *float64 `json:"tolerance,omitempty"` // default: 0.01
	Columns     []string `json:"columns,omitempty"`   // default: the scheme's columns
	IncludeRows bool     `json:"include_rows,omitempty"`
}

// RunsQuery filters GET /api/v1/reconcile
type RunsQuery struct {
	AccountID string `form:"account_id"`
	Limit     int    `form:"limit"` // default: 50
}
