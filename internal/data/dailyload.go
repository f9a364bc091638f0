package data

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"prepaid-reconcile/internal/model"
)

const (
	DailyLoadTable       = "dailyload_vee_validated"
	ProfileInstantTable  = "profile_instant_vee"
	registerSnapshotSpan = 24 * time.Hour
)

// RegisterReading is a cumulative import energy snapshot.
type RegisterReading struct {
	Timestamp time.Time
	ImportWh  float64
}

// DemandReading is a maximum-demand sample.
type DemandReading struct {
	Timestamp time.Time
	MDW       float64
}

// DailyLoadReader reads validated meter registers from the MDMS Postgres database.
type DailyLoadReader struct {
	DB *sql.DB
}

// OpenDailyLoad connects through the pgx database/sql driver.
func OpenDailyLoad(dsn string) (*DailyLoadReader, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	return &DailyLoadReader{DB: db}, nil
}

func (r *DailyLoadReader) Close() error { return r.DB.Close() }

// Registers returns the meter's daily snapshots in [from, to), oldest first.
func (r *DailyLoadReader) Registers(ctx context.Context, meter string, from, to time.Time) ([]RegisterReading, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT data_timestamp, "import_Wh"
FROM `+DailyLoadTable+`
WHERE device_identifier = $1
	AND data_timestamp >= $2
	AND data_timestamp < $3
ORDER BY data_timestamp ASC`, meter, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RegisterReading
	for rows.Next() {
		var rr RegisterReading
		if err := rows.Scan(&rr.Timestamp, &rr.ImportWh); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// Demands returns maximum-demand samples in [from, to), oldest first.
func (r *DailyLoadReader) Demands(ctx context.Context, meter string, from, to time.Time) ([]DemandReading, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT data_timestamp, "MD_W"
FROM `+ProfileInstantTable+`
WHERE device_identifier = $1
	AND data_timestamp >= $2
	AND data_timestamp < $3
ORDER BY data_timestamp ASC`, meter, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DemandReading
	for rows.Next() {
		var d DemandReading
		if err := rows.Scan(&d.Timestamp, &d.MDW); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Readings builds daily consumption records for [start, end). The snapshot
// taken on the day after end closes the last day.
func (r *DailyLoadReader) Readings(ctx context.Context, meter string, start, end time.Time) ([]model.ConsumptionRecord, error) {
	regs, err := r.Registers(ctx, meter, start, end.Add(registerSnapshotSpan))
	if err != nil {
		return nil, fmt.Errorf("load registers: %w", err)
	}
	demands, err := r.Demands(ctx, meter, start, end)
	if err != nil {
		return nil, fmt.Errorf("load demand: %w", err)
	}
	return ReadingsFromRegisters(regs, demands, start, end), nil
}

// ReadingsFromRegisters turns cumulative import snapshots into daily kWh and
// attaches each day's highest MD_W in kW. Day d's consumption is the next
// snapshot minus day d's snapshot; days without a following snapshot are dropped.
func ReadingsFromRegisters(regs []RegisterReading, demands []DemandReading, start, end time.Time) []model.ConsumptionRecord {
	sorted := make([]RegisterReading, len(regs))
	copy(sorted, regs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	peak := map[string]float64{}
	for _, d := range demands {
		key := dayKey(d.Timestamp)
		if kw := d.MDW / 1000; kw > peak[key] {
			peak[key] = kw
		}
	}

	var out []model.ConsumptionRecord
	for i := 0; i+1 < len(sorted); i++ {
		cur, next := sorted[i], sorted[i+1]
		if cur.Timestamp.Before(start) || !cur.Timestamp.Before(end) {
			continue
		}
		day := cur.Timestamp.UTC().Truncate(24 * time.Hour)
		out = append(out, model.ConsumptionRecord{
			Date:                day,
			DailyConsumptionKWh: (next.ImportWh - cur.ImportWh) / 1000,
			MaxDemandKW:         peak[dayKey(cur.Timestamp)],
		})
	}
	return out
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }
