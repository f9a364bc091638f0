package tariff

import (
	"math"

	"prepaid-reconcile/internal/model"
)

// demandEpsilon is the kW difference below which two days' demand are equal.
const demandEpsilon = 1e-4

// FlatDemand bills the minimum-band fixed charge every day and ignores demand.
type FlatDemand struct {
	Config model.TariffConfig
}

func (d *FlatDemand) Name() string { return "flat_demand" }

func (d *FlatDemand) Charge(ctx DemandContext) DemandCharge {
	cfg := d.Config
	rate := cfg.FixedChargeRate(ctx.CumKWh)
	return DemandCharge{
		Percent:     percentOfLoad(ctx.MaxDemandKW, cfg.ContractedLoadKW),
		Rate:        rate,
		FixedCharge: cfg.DemandBands.MinimumFactor() * cfg.ContractedLoadKW * rate / float64(cfg.DaysInMonth),
		Schedule:    ctx.Penalty,
	}
}

// BandedDemand implements the three demand bands:
//   - at or below the minimum band the fixed charge is prorated on MinimumPct of the load
//   - above it the fixed charge follows actual demand and earlier days are trued up
//   - above the penalty band an excess-demand penalty is spread over the rest of the cycle
type BandedDemand struct {
	Config model.TariffConfig
}

func (d *BandedDemand) Name() string { return "banded_demand" }

func (d *BandedDemand) Charge(ctx DemandContext) DemandCharge {
	cfg := d.Config
	load := cfg.ContractedLoadKW
	days := float64(cfg.DaysInMonth)
	bands := cfg.DemandBands

	pct := percentOfLoad(ctx.MaxDemandKW, load)
	rate := cfg.FixedChargeRate(ctx.CumKWh)
	ratio := ctx.MaxDemandKW / load

	out := DemandCharge{Percent: pct, Rate: rate}
	if pct <= bands.MinimumPct {
		out.FixedCharge = bands.MinimumFactor() * load * rate / days
	} else {
		out.FixedCharge = rate * load * ratio / days
	}

	out.Adjustment = d.adjustment(ctx, pct, rate)
	out.Penalty, out.Schedule = d.penalty(ctx, pct, rate)
	return out
}

// adjustment re-bills days 1..day-1 at today's demand ratio.
// It is negative when demand fell but stayed above the minimum band.
func (d *BandedDemand) adjustment(ctx DemandContext, pct, rate float64) float64 {
	cfg := d.Config
	if pct <= cfg.DemandBands.MinimumPct || ctx.Day <= 1 {
		return 0
	}
	if math.Abs(ctx.MaxDemandKW-ctx.PrevMaxDemandKW) < demandEpsilon {
		return 0
	}
	load := cfg.ContractedLoadKW
	cur := ctx.MaxDemandKW / load
	prev := ctx.PrevMaxDemandKW / load
	if ctx.PrevPercent <= cfg.DemandBands.MinimumPct {
		prev = cfg.DemandBands.MinimumFactor()
	}
	return rate * load * (cur - prev) * float64(ctx.Day-1) / float64(cfg.DaysInMonth)
}

// penalty spreads (maxDemand - load) * rate over the remaining days of the cycle.
// A new or higher peak reschedules whatever is still owed; a lower peak keeps the
// schedule in force, capped at what the lower demand would owe in total.
func (d *BandedDemand) penalty(ctx DemandContext, pct, rate float64) (float64, PenaltySchedule) {
	cfg := d.Config
	sched := ctx.Penalty
	if pct <= cfg.DemandBands.PenaltyPct {
		return 0, sched
	}
	remaining := cfg.DaysInMonth - ctx.Day + 1
	if remaining <= 0 {
		return 0, sched
	}
	total := (ctx.MaxDemandKW - cfg.ContractedLoadKW) * rate

	var daily float64
	switch {
	case sched.PeakKW == 0:
		daily = total / float64(remaining)
		sched.PeakKW = ctx.MaxDemandKW
		sched.DailyRate = daily
	case ctx.MaxDemandKW >= sched.PeakKW:
		daily = math.Max(0, total-sched.Charged) / float64(remaining)
		sched.PeakKW = ctx.MaxDemandKW
		sched.DailyRate = daily
	default:
		daily = math.Min(sched.DailyRate, math.Max(0, total-sched.Charged))
	}
	sched.Charged += daily
	return daily, sched
}

func percentOfLoad(maxDemandKW, loadKW float64) float64 {
	return maxDemandKW / loadKW * 100
}
