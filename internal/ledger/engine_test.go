package ledger

import (
	"bytes"
	"errors"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepaid-reconcile/internal/model"
)

func flatConfig() model.TariffConfig {
	return model.TariffConfig{
		Name:               "formula_101",
		Scheme:             model.SchemeFlat,
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

func bandedConfig() model.TariffConfig {
	cfg := flatConfig()
	cfg.Name = "formula_102"
	cfg.Scheme = model.SchemeDemandBanded
	return cfg
}

func lifeLineConfig() model.TariffConfig {
	cfg := bandedConfig()
	cfg.Name = "formula_103"
	cfg.Scheme = model.SchemeTieredLifeLine
	cfg.EnergyTiers = []model.EnergyTier{
		{UpToKWh: 100, Rate: 3},
		{UpToKWh: 150, Rate: 5.5},
		{UpToKWh: 300, Rate: 6},
		{Rate: 6.5},
	}
	cfg.FixedChargeRateHigh = 110
	cfg.RateSwitchThresholdKWh = 100
	cfg.LifeLine = model.LifeLine{LowECRate: 3, HighECRate: 5.5}
	return cfg
}

func records(kwh, kw []float64) []model.ConsumptionRecord {
	out := make([]model.ConsumptionRecord, len(kwh))
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := range kwh {
		out[i] = model.ConsumptionRecord{
			Date:                start.AddDate(0, 0, i),
			DailyConsumptionKWh: kwh[i],
			MaxDemandKW:         kw[i],
		}
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestCompute_SingleDayFlat(t *testing.T) {
	rows, err := Compute(flatConfig(), records([]float64{10}, []float64{0.5}))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, 1, r.Day)
	assert.Equal(t, 30.0, r.DailyEnergyCharge)
	assert.Equal(t, 1.2097, r.DailyFixedCharge)
	assert.Equal(t, 31.2097, r.DailyECPlusFC)
	assert.Equal(t, 1.5605, r.DailyDuty)
	assert.Equal(t, 0.6242, r.DailyRebate)
	assert.Equal(t, 32.146, r.DailyFinalCharge)
	assert.Equal(t, 5000.0, r.OpeningBalance)
	assert.Equal(t, 4967.854, r.ClosingBalance)
}

func TestCompute_DemandJumpOnDayFive(t *testing.T) {
	kw := append(repeat(0.9, 4), repeat(1.3, 27)...)
	rows, err := Compute(bandedConfig(), records(repeat(5, 31), kw))
	require.NoError(t, err)
	require.Len(t, rows, 31)

	for i, r := range rows {
		day := i + 1
		if day == 5 {
			assert.InDelta(t, 50*0.4*4/31.0, r.DailyFCAdjustment, 1e-4)
		} else {
			assert.Zero(t, r.DailyFCAdjustment, "day %d", day)
		}
		if day < 5 {
			assert.Zero(t, r.DailyPenalty, "day %d", day)
		} else {
			assert.InDelta(t, 15.0/27, r.DailyPenalty, 1e-4, "day %d", day)
		}
	}
	assert.InDelta(t, 15, rows[30].CumPenalty, 1e-3)
}

func TestCompute_BalanceIdentity(t *testing.T) {
	kw := []float64{0.5, 0.8, 0.9, 1.2, 1.1, 0.4, 1.5, 1.5, 0.7, 1.6}
	kwh := []float64{12, 30, 45, 22, 18, 0, 40, 35, 9, 27}
	cfg := lifeLineConfig()
	cfg.OpeningBalance = 2500

	rows, err := Compute(cfg, records(kwh, kw))
	require.NoError(t, err)

	sum := 0.0
	for i, r := range rows {
		assert.InDelta(t, r.OpeningBalance-r.DailyFinalCharge, r.ClosingBalance, 2e-4, "day %d", r.Day)
		if i == 0 {
			assert.Equal(t, cfg.OpeningBalance, r.OpeningBalance)
		} else {
			assert.Equal(t, rows[i-1].ClosingBalance, r.OpeningBalance, "day %d", r.Day)
		}
		sum += r.DailyFinalCharge
		assert.InDelta(t, sum, r.CumFinalCharge, 1e-3)
	}
	assert.InDelta(t, cfg.OpeningBalance-sum, rows[len(rows)-1].ClosingBalance, 1e-3)
}

func TestCompute_LifeLineWindow(t *testing.T) {
	kwh := []float64{40, 40, 30, 10, 10, 10, 10}
	rows, err := Compute(lifeLineConfig(), records(kwh, repeat(0.8, len(kwh))))
	require.NoError(t, err)

	totalEC := 80 * (5.5 - 3.0)
	totalFC := 60 * 2 * 0.8 / 31.0
	sumEC, sumFC := 0.0, 0.0
	for _, r := range rows {
		switch {
		case r.Day < 3 || r.Day > 5:
			assert.Zero(t, r.DailyECLifeLine, "day %d", r.Day)
			assert.Zero(t, r.DailyFCLifeLine, "day %d", r.Day)
		default:
			assert.InDelta(t, totalEC/3, r.DailyECLifeLine, 1e-4, "day %d", r.Day)
			assert.InDelta(t, totalFC/3, r.DailyFCLifeLine, 1e-4, "day %d", r.Day)
		}
		sumEC += r.DailyECLifeLine
		sumFC += r.DailyFCLifeLine
		assert.InDelta(t, r.DailyEnergyCharge-r.DailyECLifeLine, r.DailyECFinal, 2e-4)
	}
	assert.InDelta(t, totalEC, sumEC, 1e-3)
	assert.InDelta(t, totalFC, sumFC, 1e-3)

	last := rows[len(rows)-1]
	assert.InDelta(t, totalEC, last.CumECLifeLineDeducted, 1e-4)
	assert.Zero(t, last.RemainingECLifeLine)
	assert.Zero(t, last.RemainingFCLifeLine)

	// day 3 switches the FC rate too
	assert.Equal(t, 50.0, rows[1].FixedChargeRate)
	assert.Equal(t, 110.0, rows[2].FixedChargeRate)
}

func TestCompute_ThresholdNeverCrossed(t *testing.T) {
	rows, err := Compute(lifeLineConfig(), records(repeat(3, 31), repeat(0.5, 31)))
	require.NoError(t, err)
	for _, r := range rows {
		assert.Zero(t, r.DailyECLifeLine)
		assert.Zero(t, r.CumFCLifeLineDeducted)
		assert.Equal(t, 9.0, r.DailyEnergyCharge)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	kw := []float64{0.5, 0.8, 1.3, 1.2, 1.7, 0.4, 1.5}
	kwh := []float64{12, 30, 70, 22, 18, 0, 40}
	in := records(kwh, kw)

	render := func() []byte {
		rows, err := Compute(lifeLineConfig(), in)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, WriteLedger(&buf, rows))
		return buf.Bytes()
	}
	assert.Equal(t, render(), render())
}

func TestCompute_RejectsBadInputBeforeComputing(t *testing.T) {
	tests := []struct {
		name string
		in   []model.ConsumptionRecord
	}{
		{"empty", nil},
		{"negative", records([]float64{5, -1}, []float64{0.5, 0.5})},
		{"nan", records([]float64{5, math.NaN()}, []float64{0.5, 0.5})},
		{"too many days", records(repeat(1, 32), repeat(0.5, 32))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Compute(flatConfig(), tt.in)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
			assert.Nil(t, rows)
		})
	}

	dup := records([]float64{1, 2}, []float64{0.5, 0.5})
	dup[1].Date = dup[0].Date
	_, err := Compute(flatConfig(), dup)
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 2, ve.Day)
	assert.Equal(t, "date", ve.Field)
	assert.Equal(t, "invalid input: day 2: date: duplicate date 2025-10-01", err.Error())
}

func TestCompute_RejectsBadTariff(t *testing.T) {
	cfg := flatConfig()
	cfg.EnergyTiers = []model.EnergyTier{{UpToKWh: 100, Rate: 3}, {UpToKWh: 50, Rate: 4}, {Rate: 5}}
	_, err := Compute(cfg, records([]float64{1}, []float64{1}))
	assert.ErrorIs(t, err, model.ErrInvalidTariff)
}

func TestMachine_Phases(t *testing.T) {
	cfg := flatConfig()
	cfg.DaysInMonth = 2
	m, err := NewMachine(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, PhaseOpening, m.Phase())

	in := records([]float64{1, 2, 3}, []float64{0.5, 0.5, 0.5})
	_, err = m.Step(in[0])
	require.NoError(t, err)
	assert.Equal(t, PhaseSteady, m.Phase())

	_, err = m.Step(in[0])
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, 1, m.State().Day)

	_, err = m.Step(in[1])
	require.NoError(t, err)
	assert.Equal(t, PhaseClosed, m.Phase())

	_, err = m.Step(in[2])
	assert.ErrorIs(t, err, ErrCycleClosed)
	assert.InDelta(t, 3.0, m.State().CumConsumption, 1e-12)
}

func TestEngine_LogsDailyTrace(t *testing.T) {
	var buf bytes.Buffer
	e := &Engine{Logger: log.New(&buf, "", 0)}
	_, err := e.Run(flatConfig(), records([]float64{10}, []float64{0.5}))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "**********DAY 1 - 2025-10-01**********")
	assert.Contains(t, buf.String(), "Closing Balance: 4967.8540")
}

func TestWriteLedger_Header(t *testing.T) {
	rows, err := Compute(flatConfig(), records([]float64{10}, []float64{0.5}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteLedger(&buf, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "day,start_date_time,end_date_time,"))
	assert.True(t, strings.HasSuffix(lines[0], "opening_balance,closing_balance"))
	assert.True(t, strings.HasSuffix(lines[1], "5000.0000,4967.8540"))
}
