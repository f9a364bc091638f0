package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"prepaid-reconcile/internal/model"
)

// ErrUnexpectedFormat is returned for bodies that are neither a list nor {"data": [...]}.
var ErrUnexpectedFormat = errors.New("unexpected ledger response format")

// Numeric ledger fields beyond the compared columns.
var extraNumericFields = []string{
	"daily_ec_life_line_switch_charge",
	"daily_fc_life_line_switch_charge",
	"max_demand_percentage",
	"fc_rate",
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DecodeLedger parses a daily_prepaid_ledger response. Numeric fields that are
// null, empty or non-numeric decode as 0. Rows come back in upstream order.
func DecodeLedger(body []byte) ([]model.LedgerRow, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		data, ok := v["data"].([]any)
		if !ok {
			return nil, ErrUnexpectedFormat
		}
		items = data
	default:
		return nil, ErrUnexpectedFormat
	}

	out := make([]model.LedgerRow, 0, len(items))
	for i, it := range items {
		rec, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ledger record %d: %w", i, ErrUnexpectedFormat)
		}
		row, err := decodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("ledger record %d: %w", i, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func decodeRow(rec map[string]any) (model.LedgerRow, error) {
	numeric := map[string]float64{}
	for _, name := range model.ColumnNames(model.LedgerColumns) {
		numeric[name] = toFloat(rec[name])
	}
	for _, name := range extraNumericFields {
		numeric[name] = toFloat(rec[name])
	}
	raw, err := json.Marshal(numeric)
	if err != nil {
		return model.LedgerRow{}, err
	}
	var row model.LedgerRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return model.LedgerRow{}, err
	}

	if row.StartDateTime, err = toTime(rec["start_date_time"]); err != nil {
		return model.LedgerRow{}, fmt.Errorf("start_date_time: %w", err)
	}
	if row.EndDateTime, err = toTime(rec["end_date_time"]); err != nil {
		return model.LedgerRow{}, fmt.Errorf("end_date_time: %w", err)
	}
	row.AccountID = toString(rec["account_id"])
	row.MeterNumber = toString(rec["meter_number"])
	row.SupplyTypeCode = toString(rec["applied_supply_type_code"])
	return row, nil
}

func toFloat(v any) float64 {
	var f float64
	switch x := v.(type) {
	case json.Number:
		f, _ = x.Float64()
	case float64:
		f = x
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(x), 64)
	case bool:
		if x {
			f = 1
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// toTime parses upstream timestamps and normalizes them to UTC.
func toTime(v any) (time.Time, error) {
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FilterWindow keeps rows with start in [start, end), sorted by start, and
// renumbers Day from 1.
func FilterWindow(rows []model.LedgerRow, start, end time.Time) []model.LedgerRow {
	out := make([]model.LedgerRow, 0, len(rows))
	for _, r := range rows {
		if r.StartDateTime.Before(start) || !r.StartDateTime.Before(end) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDateTime.Before(out[j].StartDateTime)
	})
	for i := range out {
		out[i].Day = i + 1
	}
	return out
}
