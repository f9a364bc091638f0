package model

import (
	"fmt"
	"math"
	"time"
)

// ConsumptionRecord is one day of meter readings.
type ConsumptionRecord struct {
	Date                time.Time `json:"date"`
	DailyConsumptionKWh float64   `json:"daily_consumption"`
	MaxDemandKW         float64   `json:"max_demand"`
}

// ValidateRecords checks the whole sequence before any day is billed:
// non-empty, finite non-negative values and strictly increasing dates.
func ValidateRecords(records []ConsumptionRecord) error {
	if len(records) == 0 {
		return &ValidationError{Field: "records", Reason: "empty record sequence"}
	}
	var prev time.Time
	for i, r := range records {
		if err := ValidateRecord(i+1, r, prev); err != nil {
			return err
		}
		prev = r.Date
	}
	return nil
}

// ValidateRecord checks a single day. prev is the previous day's date, zero on day 1.
func ValidateRecord(day int, r ConsumptionRecord, prev time.Time) error {
	if err := checkQuantity(day, "daily_consumption", r.DailyConsumptionKWh); err != nil {
		return err
	}
	if err := checkQuantity(day, "max_demand", r.MaxDemandKW); err != nil {
		return err
	}
	if r.Date.IsZero() {
		return &ValidationError{Day: day, Field: "date", Reason: "missing date"}
	}
	if prev.IsZero() {
		return nil
	}
	if r.Date.Equal(prev) {
		return &ValidationError{Day: day, Field: "date", Reason: fmt.Sprintf("duplicate date %s", r.Date.Format("2006-01-02"))}
	}
	if r.Date.Before(prev) {
		return &ValidationError{Day: day, Field: "date", Reason: fmt.Sprintf("%s is before %s", r.Date.Format("2006-01-02"), prev.Format("2006-01-02"))}
	}
	return nil
}

func checkQuantity(day int, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Day: day, Field: field, Reason: "not a finite number"}
	}
	if v < 0 {
		return &ValidationError{Day: day, Field: field, Reason: fmt.Sprintf("negative value %g", v)}
	}
	return nil
}

// ReadingsFromLedger extracts the meter readings an upstream ledger was billed on.
func ReadingsFromLedger(rows []LedgerRow) []ConsumptionRecord {
	out := make([]ConsumptionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ConsumptionRecord{
			Date:                r.StartDateTime,
			DailyConsumptionKWh: r.DailyConsumption,
			MaxDemandKW:         r.MaxDemand,
		})
	}
	return out
}
