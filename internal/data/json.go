package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"prepaid-reconcile/internal/model"
)

// LoadLedgerJSON reads a saved daily_prepaid_ledger response.
func LoadLedgerJSON(path string) ([]model.LedgerRow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := DecodeLedger(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// SaveLedgerJSON writes rows as {"data": [...]}, the shape LoadLedgerJSON reads back.
func SaveLedgerJSON(path string, rows []model.LedgerRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(map[string]any{"data": rows}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	return os.WriteFile(path, raw, 0644)
}

type readingJSON struct {
	Date                any `json:"date"`
	DailyConsumptionKWh any `json:"daily_consumption"`
	MaxDemandKW         any `json:"max_demand"`
}

// LoadReadingsJSON reads a list of {date, daily_consumption, max_demand} objects.
// Dates may be plain YYYY-MM-DD.
func LoadReadingsJSON(path string) ([]model.ConsumptionRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeReadings(raw)
}

func DecodeReadings(raw []byte) ([]model.ConsumptionRecord, error) {
	var in []readingJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}
	out := make([]model.ConsumptionRecord, 0, len(in))
	for i, r := range in {
		d, err := toTime(r.Date)
		if err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
		out = append(out, model.ConsumptionRecord{
			Date:                d,
			DailyConsumptionKWh: toFloat(r.DailyConsumptionKWh),
			MaxDemandKW:         toFloat(r.MaxDemandKW),
		})
	}
	return out, nil
}
