package tariff

import (
	"math"

	"prepaid-reconcile/internal/model"
)

// TieredEnergy prices consumption against month-to-date tiers.
// A day that crosses a tier boundary is split at the boundary.
type TieredEnergy struct {
	tiers []model.EnergyTier
}

func NewTieredEnergy(tiers []model.EnergyTier) *TieredEnergy {
	cp := make([]model.EnergyTier, len(tiers))
	copy(cp, tiers)
	return &TieredEnergy{tiers: cp}
}

func (e *TieredEnergy) Name() string {
	if len(e.tiers) == 1 {
		return "flat_energy"
	}
	return "tiered_energy"
}

// Charge sums, for every tier [lower, upper), the overlap with
// [cumBefore, cumBefore+daily) times the tier rate.
func (e *TieredEnergy) Charge(cumBeforeKWh, dailyKWh float64) float64 {
	if dailyKWh <= 0 {
		return 0
	}
	from := cumBeforeKWh
	to := cumBeforeKWh + dailyKWh

	total := 0.0
	lower := 0.0
	for _, t := range e.tiers {
		upper := t.UpToKWh
		if upper == 0 {
			upper = math.Inf(1)
		}
		lo := math.Max(from, lower)
		hi := math.Min(to, upper)
		if hi > lo {
			total += (hi - lo) * t.Rate
		}
		if to <= upper {
			break
		}
		lower = upper
	}
	return total
}

// Split returns the kWh that fell into each tier for the given day.
func (e *TieredEnergy) Split(cumBeforeKWh, dailyKWh float64) []float64 {
	out := make([]float64, len(e.tiers))
	from := cumBeforeKWh
	to := cumBeforeKWh + dailyKWh
	lower := 0.0
	for i, t := range e.tiers {
		upper := t.UpToKWh
		if upper == 0 {
			upper = math.Inf(1)
		}
		lo := math.Max(from, lower)
		hi := math.Min(to, upper)
		if hi > lo {
			out[i] = hi - lo
		}
		lower = upper
	}
	return out
}
