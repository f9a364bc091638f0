package tariff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepaid-reconcile/internal/model"
)

func lifeLineTiers() []model.EnergyTier {
	return []model.EnergyTier{
		{UpToKWh: 100, Rate: 3},
		{UpToKWh: 150, Rate: 5.5},
		{UpToKWh: 300, Rate: 6},
		{UpToKWh: 0, Rate: 6.5},
	}
}

func bandedConfig() model.TariffConfig {
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

func lifeLineConfig() model.TariffConfig {
	cfg := bandedConfig()
	cfg.Name = "formula_103"
	cfg.Scheme = model.SchemeTieredLifeLine
	cfg.EnergyTiers = lifeLineTiers()
	cfg.FixedChargeRateHigh = 110
	cfg.RateSwitchThresholdKWh = 100
	cfg.LifeLine = model.LifeLine{LowECRate: 3, HighECRate: 5.5}
	cfg.OpeningBalance = 0
	return cfg
}

func TestTieredEnergy_SplitsAtBoundaries(t *testing.T) {
	e := NewTieredEnergy(lifeLineTiers())

	assert.InDelta(t, 30, e.Charge(0, 10), 1e-9)
	assert.InDelta(t, 10*3+10*5.5, e.Charge(90, 20), 1e-9)
	assert.InDelta(t, 10*5.5+10*6, e.Charge(140, 20), 1e-9)
	assert.InDelta(t, 100*3+50*5.5+150*6+100*6.5, e.Charge(0, 400), 1e-9)
	assert.Equal(t, 0.0, e.Charge(120, 0))

	assert.Equal(t, []float64{10, 50, 150, 20}, e.Split(90, 230))
}

func TestTieredEnergy_DailySumMatchesWholeCycle(t *testing.T) {
	e := NewTieredEnergy(lifeLineTiers())
	daily := []float64{12.5, 40, 33.3, 0, 18.2, 75, 90.1, 61.7, 5}

	cum, sum := 0.0, 0.0
	for _, d := range daily {
		sum += e.Charge(cum, d)
		cum += d
	}
	assert.InDelta(t, e.Charge(0, cum), sum, 1e-9)
}

func TestTieredEnergy_SingleTierIsFlat(t *testing.T) {
	e := NewTieredEnergy([]model.EnergyTier{{Rate: 3}})
	assert.Equal(t, "flat_energy", e.Name())
	assert.InDelta(t, 3*1234.5, e.Charge(10000, 1234.5), 1e-9)
}

func TestFlatDemand_MinimumBandOnly(t *testing.T) {
	cfg := bandedConfig()
	cfg.Scheme = model.SchemeFlat
	d := &FlatDemand{Config: cfg}

	got := d.Charge(DemandContext{Day: 3, MaxDemandKW: 1.8, CumKWh: 20})
	assert.InDelta(t, 0.75*50/31, got.FixedCharge, 1e-9)
	assert.Zero(t, got.Adjustment)
	assert.Zero(t, got.Penalty)
	assert.InDelta(t, 180, got.Percent, 1e-9)
}

func TestBandedDemand_FixedChargeBands(t *testing.T) {
	d := &BandedDemand{Config: bandedConfig()}

	low := d.Charge(DemandContext{Day: 1, MaxDemandKW: 0.5})
	assert.InDelta(t, 0.75*50/31, low.FixedCharge, 1e-9)
	assert.Zero(t, low.Penalty)

	mid := d.Charge(DemandContext{Day: 1, MaxDemandKW: 0.9})
	assert.InDelta(t, 50*0.9/31, mid.FixedCharge, 1e-9)
	assert.Zero(t, mid.Adjustment)

	atPenaltyBand := d.Charge(DemandContext{Day: 1, MaxDemandKW: 1.0})
	assert.Zero(t, atPenaltyBand.Penalty)
}

func TestBandedDemand_Adjustment(t *testing.T) {
	d := &BandedDemand{Config: bandedConfig()}

	t.Run("demand rises", func(t *testing.T) {
		got := d.Charge(DemandContext{Day: 5, MaxDemandKW: 1.3, PrevMaxDemandKW: 0.9, PrevPercent: 90})
		assert.InDelta(t, 50*0.4*4/31, got.Adjustment, 1e-9)
	})
	t.Run("same demand", func(t *testing.T) {
		got := d.Charge(DemandContext{Day: 6, MaxDemandKW: 1.3, PrevMaxDemandKW: 1.3, PrevPercent: 130})
		assert.Zero(t, got.Adjustment)
	})
	t.Run("previous day in minimum band", func(t *testing.T) {
		got := d.Charge(DemandContext{Day: 3, MaxDemandKW: 0.9, PrevMaxDemandKW: 0.5, PrevPercent: 50})
		assert.InDelta(t, 50*(0.9-0.75)*2/31, got.Adjustment, 1e-9)
	})
	t.Run("demand falls above minimum band", func(t *testing.T) {
		got := d.Charge(DemandContext{Day: 4, MaxDemandKW: 0.8, PrevMaxDemandKW: 0.9, PrevPercent: 90})
		assert.Less(t, got.Adjustment, 0.0)
	})
	t.Run("today in minimum band", func(t *testing.T) {
		got := d.Charge(DemandContext{Day: 4, MaxDemandKW: 0.5, PrevMaxDemandKW: 0.9, PrevPercent: 90})
		assert.Zero(t, got.Adjustment)
	})
}

func TestBandedDemand_PenaltyMonotoneDemandSettlesInFull(t *testing.T) {
	cfg := bandedConfig()
	d := &BandedDemand{Config: cfg}

	demand := make([]float64, cfg.DaysInMonth)
	for i := range demand {
		switch {
		case i < 4:
			demand[i] = 0.9
		case i < 12:
			demand[i] = 1.3
		default:
			demand[i] = 1.6
		}
	}

	var sched PenaltySchedule
	prev, prevPct := 0.0, 0.0
	for i, md := range demand {
		got := d.Charge(DemandContext{Day: i + 1, MaxDemandKW: md, PrevMaxDemandKW: prev, PrevPercent: prevPct, Penalty: sched})
		if i < 4 {
			assert.Zero(t, got.Penalty, "day %d", i+1)
		} else {
			assert.Positive(t, got.Penalty, "day %d", i+1)
		}
		sched = got.Schedule
		prev, prevPct = md, got.Percent
	}
	assert.InDelta(t, (1.6-1)*50, sched.Charged, 1e-9)
}

func TestBandedDemand_PenaltyFirstDaySpreadsOverRemainingDays(t *testing.T) {
	d := &BandedDemand{Config: bandedConfig()}

	got := d.Charge(DemandContext{Day: 5, MaxDemandKW: 1.3, PrevMaxDemandKW: 0.9, PrevPercent: 90})
	assert.InDelta(t, 0.3*50/27, got.Penalty, 1e-9)
	assert.InDelta(t, 1.3, got.Schedule.PeakKW, 1e-12)
	assert.InDelta(t, got.Penalty, got.Schedule.Charged, 1e-12)
}

func TestBandedDemand_PenaltyFreezesOnDecrease(t *testing.T) {
	d := &BandedDemand{Config: bandedConfig()}

	first := d.Charge(DemandContext{Day: 1, MaxDemandKW: 1.5})
	rate := first.Penalty
	assert.InDelta(t, 0.5*50/31, rate, 1e-9)

	second := d.Charge(DemandContext{Day: 2, MaxDemandKW: 1.2, PrevMaxDemandKW: 1.5, PrevPercent: 150, Penalty: first.Schedule})
	assert.InDelta(t, rate, second.Penalty, 1e-12)
	assert.InDelta(t, 1.5, second.Schedule.PeakKW, 1e-12)

	// owed for 1.05 kW is 2.5, already charged more than that
	sched := second.Schedule
	sched.Charged = 8
	third := d.Charge(DemandContext{Day: 11, MaxDemandKW: 1.05, PrevMaxDemandKW: 1.2, PrevPercent: 120, Penalty: sched})
	assert.Zero(t, third.Penalty)
	assert.InDelta(t, 8, third.Schedule.Charged, 1e-12)
}

func TestBandedDemand_RateSwitchesOnThreshold(t *testing.T) {
	d := &BandedDemand{Config: lifeLineConfig()}

	assert.Equal(t, 50.0, d.Charge(DemandContext{Day: 1, MaxDemandKW: 0.5, CumKWh: 100}).Rate)
	assert.Equal(t, 110.0, d.Charge(DemandContext{Day: 1, MaxDemandKW: 0.5, CumKWh: 100.01}).Rate)
}

func TestLifeLine_SmoothsDeltaOverWindow(t *testing.T) {
	cfg := lifeLineConfig()
	l := NewLifeLine(cfg)

	daily := []float64{60, 30, 20, 10, 10, 10, 10}
	cum := 0.0
	var ec, fc []float64
	for i, kwh := range daily {
		cum += kwh
		d := l.Apply(TransitionDay{Day: i + 1, DailyKWh: kwh, CumKWh: cum, MaxDemandKW: 0.8})
		ec = append(ec, d.EC)
		fc = append(fc, d.FC)
	}

	p := l.Progress()
	require.True(t, p.Triggered)
	assert.Equal(t, 3, p.TriggerDay)
	assert.InDelta(t, 90*5.5-90*3, p.TotalECDelta, 1e-9)
	assert.InDelta(t, 60*2*0.8/31, p.TotalFCDelta, 1e-9)

	assert.Equal(t, []float64{0, 0}, ec[:2])
	assert.Equal(t, []float64{0, 0}, ec[5:])
	assert.Equal(t, []float64{0, 0}, fc[5:])
	assert.InDelta(t, 75, ec[2], 1e-9)
	assert.InDelta(t, p.TotalECDelta, ec[2]+ec[3]+ec[4], 1e-12)
	assert.InDelta(t, p.TotalFCDelta, fc[2]+fc[3]+fc[4], 1e-12)
	assert.InDelta(t, 0, p.RemainingEC(), 1e-12)
	assert.InDelta(t, 0, p.RemainingFC(), 1e-12)
}

func TestLifeLine_NoHighFixedChargeRate(t *testing.T) {
	cfg := lifeLineConfig()
	cfg.FixedChargeRateHigh = 0
	require.NoError(t, cfg.Validate())
	l := NewLifeLine(cfg)

	cum := 0.0
	var fc []float64
	for i, kwh := range []float64{60, 30, 20, 10, 10} {
		cum += kwh
		d := l.Apply(TransitionDay{Day: i + 1, DailyKWh: kwh, CumKWh: cum, MaxDemandKW: 0.8})
		assert.GreaterOrEqual(t, d.EC, 0.0)
		fc = append(fc, d.FC)
	}

	p := l.Progress()
	require.True(t, p.Triggered)
	assert.InDelta(t, 90*5.5-90*3, p.TotalECDelta, 1e-9)
	assert.Zero(t, p.TotalFCDelta)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, fc)
}

func TestLifeLine_DoesNotTriggerAtThreshold(t *testing.T) {
	l := NewLifeLine(lifeLineConfig())
	d := l.Apply(TransitionDay{Day: 1, DailyKWh: 100, CumKWh: 100, MaxDemandKW: 0.5})
	assert.Equal(t, Deduction{}, d)
	assert.False(t, l.Progress().Triggered)
}

func TestLifeLine_TriggersOnce(t *testing.T) {
	l := NewLifeLine(lifeLineConfig())
	l.Apply(TransitionDay{Day: 1, DailyKWh: 150, CumKWh: 150, MaxDemandKW: 0.5})
	first := l.Progress()
	for day := 2; day <= 10; day++ {
		l.Apply(TransitionDay{Day: day, DailyKWh: 100, CumKWh: 150 + float64(day-1)*100, MaxDemandKW: 1})
	}
	assert.Equal(t, 1, l.Progress().TriggerDay)
	assert.Equal(t, first.TotalECDelta, l.Progress().TotalECDelta)
	// day 1 trigger: nothing consumed before, nothing to reprice
	assert.Zero(t, first.TotalECDelta)
	assert.Zero(t, first.TotalFCDelta)
}

func TestForScheme(t *testing.T) {
	flat := bandedConfig()
	flat.Scheme = model.SchemeFlat

	tests := []struct {
		name     string
		cfg      model.TariffConfig
		demand   string
		smoother string
	}{
		{"flat", flat, "flat_demand", "none"},
		{"demand banded", bandedConfig(), "banded_demand", "none"},
		{"tiered life-line", lifeLineConfig(), "banded_demand", "life_line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calcs, err := ForScheme(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.demand, calcs.Demand.Name())
			assert.Equal(t, tt.smoother, calcs.Smoother.Name())
		})
	}

	bad := bandedConfig()
	bad.DaysInMonth = 0
	_, err := ForScheme(bad)
	assert.ErrorIs(t, err, model.ErrInvalidTariff)
}
