package reconcile

import (
	"bytes"
	"errors"
	"log"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepaid-reconcile/internal/ledger"
	"prepaid-reconcile/internal/model"
)

func demandTariff() model.TariffConfig {
	return model.TariffConfig{
		Name:               "formula_102",
		Scheme:             model.SchemeDemandBanded,
		ContractedLoadKW:   1,
		DaysInMonth:        31,
		EnergyTiers:        []model.EnergyTier{{Rate: 3}},
		FixedChargeRateLow: 50,
		DemandBands:        model.DemandBands{MinimumPct: 75, PenaltyPct: 100},
		DutyRate:           0.05,
		RebateRate:         0.02,
		OpeningBalance:     5000,
	}
}

func upstreamLedger(t *testing.T) []model.LedgerRow {
	t.Helper()
	kwh := []float64{10, 12, 8, 15, 11, 9}
	kw := []float64{0.5, 0.8, 0.9, 1.3, 1.3, 0.7}
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	recs := make([]model.ConsumptionRecord, len(kwh))
	for i := range kwh {
		recs[i] = model.ConsumptionRecord{Date: start.AddDate(0, 0, i), DailyConsumptionKWh: kwh[i], MaxDemandKW: kw[i]}
	}
	rows, err := ledger.Compute(demandTariff(), recs)
	require.NoError(t, err)
	for i := range rows {
		rows[i].AccountID = "3276464172"
		rows[i].MeterNumber = "MTR-1"
	}
	return rows
}

func TestCompare_IdenticalLedgersMatch(t *testing.T) {
	rows := upstreamLedger(t)
	for _, tol := range []float64{0, 0.01, 5} {
		rep := Compare(rows, rows, tol)
		assert.Equal(t, len(rows), rep.Passed)
		assert.Zero(t, rep.Failed)
		assert.Equal(t, 100.0, rep.SuccessRate)
		assert.Equal(t, VerdictPass, rep.Verdict)
		assert.Equal(t, "All ledger calculations are correct", rep.Remarks)
		for _, r := range rep.Rows {
			assert.Equal(t, StatusAllMatch, r.Status)
		}
	}
}

func TestCompare_ToleranceBoundary(t *testing.T) {
	exp := []model.LedgerRow{{Day: 1, DailyDuty: 1.0, ClosingBalance: 10}}
	act := []model.LedgerRow{{Day: 1, DailyDuty: 1.25, ClosingBalance: 10.5}}

	rep := Compare(exp, act, 0.25)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "closing_balance", rep.Rows[0].Status)
	assert.Equal(t, []string{"closing_balance"}, rep.Rows[0].Mismatches())
	assert.Equal(t, VerdictFail, rep.Verdict)
	assert.Equal(t, []ColumnMismatch{{Column: "closing_balance", Rows: 1}}, rep.MismatchedColumns)
}

func TestCompare_StatusListsColumnsInOrder(t *testing.T) {
	exp := []model.LedgerRow{{Day: 1}}
	act := []model.LedgerRow{{Day: 1, DailyEnergyCharge: 3, DailyFinalCharge: 3, DailyConsumption: 1}}

	rep := Compare(exp, act, DefaultTolerance)
	assert.Equal(t, "daily_consumption, daily_consumption_in_rupees, daily_final_charge", rep.Rows[0].Status)
}

func TestCompare_NaNTreatedAsZero(t *testing.T) {
	exp := []model.LedgerRow{{Day: 1, DailyPenalty: 0}}
	act := []model.LedgerRow{{Day: 1, DailyPenalty: math.NaN(), CumPenalty: math.Inf(1)}}

	rep := Compare(exp, act, DefaultTolerance)
	assert.Equal(t, StatusAllMatch, rep.Rows[0].Status)
}

func TestCompare_NegativeToleranceIsExact(t *testing.T) {
	rows := upstreamLedger(t)
	rep := Compare(rows, rows, -1)
	assert.Zero(t, rep.Tolerance)
	assert.True(t, rep.Pass())
}

func TestCompare_LengthMismatch(t *testing.T) {
	rows := upstreamLedger(t)

	rep := Compare(rows, rows[:4], DefaultTolerance)
	assert.Equal(t, 6, rep.Total)
	assert.Equal(t, 2, rep.Failed)
	assert.Equal(t, StatusMissingActual, rep.Rows[5].Status)

	rep = Compare(rows[:5], rows, DefaultTolerance)
	assert.Equal(t, StatusMissingExpect, rep.Rows[5].Status)
	assert.InDelta(t, 5.0/6*100, rep.SuccessRate, 1e-9)
}

func TestCompare_EmptyLedgersFail(t *testing.T) {
	rep := Compare(nil, nil, DefaultTolerance)
	assert.Zero(t, rep.Total)
	assert.Zero(t, rep.SuccessRate)
	assert.Equal(t, VerdictFail, rep.Verdict)
	assert.False(t, rep.Pass())
	assert.Equal(t, "No records compared", rep.Remarks)
}

func TestReport_RemarksQuoteThreeReasons(t *testing.T) {
	exp := make([]model.LedgerRow, 5)
	act := []model.LedgerRow{
		{DailyDuty: 1},
		{DailyRebate: 1},
		{CumDuty: 1},
		{CumRebate: 1},
		{DailyDuty: 1},
	}
	rep := Compare(exp, act, DefaultTolerance)
	assert.Equal(t, 5, rep.Failed)
	assert.Equal(t,
		"Mismatches found in 5 records. Issues: daily_ed_charge, daily_final_rebate, cumm_ed_charges_mtd...",
		rep.Remarks)
	assert.Equal(t, []ColumnMismatch{
		{Column: "daily_ed_charge", Rows: 2},
		{Column: "cumm_ed_charges_mtd", Rows: 1},
		{Column: "daily_final_rebate", Rows: 1},
		{Column: "cumm_daily_final_rebate_mtd", Rows: 1},
	}, rep.MismatchedColumns)
}

func TestRun_Pass(t *testing.T) {
	actual := upstreamLedger(t)

	var buf bytes.Buffer
	out, err := Run(demandTariff(), actual, Options{Tolerance: DefaultTolerance, Logger: log.New(&buf, "", 0)})
	require.NoError(t, err)
	assert.Equal(t, "3276464172", out.AccountID)
	assert.Equal(t, "formula_102", out.Tariff)
	assert.True(t, out.Report.Pass())
	assert.Len(t, out.Report.Columns, 24)
	assert.Equal(t, "MTR-1", out.Computed[0].MeterNumber)
	assert.Contains(t, buf.String(), "Test Case Result: PASS")
}

func TestRun_FlagsBillingError(t *testing.T) {
	actual := upstreamLedger(t)
	actual[3].DailyPenalty += 0.5
	out, err := Run(demandTariff(), actual, Options{Tolerance: DefaultTolerance})
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, out.Report.Verdict)
	assert.Equal(t, 1, out.Report.Failed)
	assert.Equal(t, "daily_max_demand_penalty", out.Report.Rows[3].Status)
}

func TestRun_InvalidReadings(t *testing.T) {
	actual := upstreamLedger(t)
	actual[2].DailyConsumption = -4

	_, err := Run(demandTariff(), actual, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidInput))

	_, err = Run(demandTariff(), nil, Options{})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestRankBySuccessRate(t *testing.T) {
	in := []AccountSummary{
		{AccountID: "b", SuccessRate: 90},
		{AccountID: "a", SuccessRate: 100},
		Summarize("c", "c_1", nil, errors.New("fetch failed")),
		{AccountID: "d", SuccessRate: 50},
	}
	got := RankBySuccessRate(in)
	ids := []string{}
	for _, s := range got {
		ids = append(ids, s.AccountID)
	}
	assert.Equal(t, []string{"c", "d", "b", "a"}, ids)
	assert.Equal(t, VerdictFail, got[0].Verdict)
	assert.Equal(t, "fetch failed", got[0].Error)
}
