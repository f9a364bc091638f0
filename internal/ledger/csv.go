package ledger

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"prepaid-reconcile/internal/model"
)

func WriteLedgerCSV(path string, ledger []model.LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return WriteLedger(f, ledger)
}

// WriteLedger writes the ledger as CSV using upstream column names.
func WriteLedger(out io.Writer, ledger []model.LedgerRow) error {
	w := csv.NewWriter(out)

	header := []string{
		"day",
		"start_date_time",
		"end_date_time",
		"account_id",
		"meter_number",
		"daily_ec_life_line_switch_charge",
		"daily_fc_life_line_switch_charge",
		"max_demand_percentage",
		"fc_rate",
	}
	header = append(header, model.ColumnNames(model.LedgerColumns)...)
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range ledger {
		r := &ledger[i]
		row := []string{
			strconv.Itoa(r.Day),
			fmtTime(r.StartDateTime),
			fmtTime(r.EndDateTime),
			r.AccountID,
			r.MeterNumber,
			fmtFloat(r.DailyECLifeLine),
			fmtFloat(r.DailyFCLifeLine),
			fmtFloat(r.DemandPercent),
			fmtFloat(r.FixedChargeRate),
		}
		for _, c := range model.LedgerColumns {
			row = append(row, fmtFloat(c.Value(r)))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', Places, 64)
}
