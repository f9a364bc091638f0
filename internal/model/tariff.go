package model

import (
	"fmt"
	"math"
)

// DefaultSmoothingDays is the number of days a life-line delta is spread over.
const DefaultSmoothingDays = 3

// EnergyTier is one band of the month-to-date consumption axis.
// UpToKWh is the exclusive upper bound; zero marks the unbounded last tier.
type EnergyTier struct {
	UpToKWh float64
	Rate    float64 // currency per kWh
}

// DemandBands are thresholds expressed as percentages of the contracted load.
//   - pct <= MinimumPct: flat minimum fixed charge (MinimumPct of the load)
//   - MinimumPct < pct <= PenaltyPct: fixed charge proportional to demand
//   - pct > PenaltyPct: proportional fixed charge plus excess-demand penalty
type DemandBands struct {
	MinimumPct float64
	PenaltyPct float64
}

// MinimumFactor is the billed fraction of contracted load at or below the minimum band.
func (b DemandBands) MinimumFactor() float64 { return b.MinimumPct / 100 }

// LifeLine configures the one-time energy rate switch.
// The trigger threshold is TariffConfig.RateSwitchThresholdKWh.
type LifeLine struct {
	LowECRate     float64
	HighECRate    float64
	SmoothingDays int
}

// TariffConfig holds the rate schedule for one billing cycle.
// Units:
// - ContractedLoadKW: kW
// - rates: currency per kWh (energy) or per kW per month (fixed charge)
// - DutyRate, RebateRate: fractions (0.05 = 5%)
type TariffConfig struct {
	Name   string
	Scheme Scheme

	ContractedLoadKW float64
	DaysInMonth      int

	EnergyTiers []EnergyTier

	FixedChargeRateLow     float64
	FixedChargeRateHigh    float64
	RateSwitchThresholdKWh float64

	DemandBands DemandBands

	DutyRate   float64
	RebateRate float64

	OpeningBalance float64

	LifeLine LifeLine
}

// FixedChargeRate selects the fixed-charge rate for the given month-to-date consumption.
func (c TariffConfig) FixedChargeRate(cumulativeKWh float64) float64 {
	if c.RateSwitchThresholdKWh > 0 && c.FixedChargeRateHigh > 0 && cumulativeKWh > c.RateSwitchThresholdKWh {
		return c.FixedChargeRateHigh
	}
	return c.FixedChargeRateLow
}

// SmoothingDays returns the life-line window, defaulting to DefaultSmoothingDays.
func (c TariffConfig) SmoothingDays() int {
	if c.LifeLine.SmoothingDays <= 0 {
		return DefaultSmoothingDays
	}
	return c.LifeLine.SmoothingDays
}

// Validate reports the first problem that would make the tariff unbillable.
func (c TariffConfig) Validate() error {
	if !c.Scheme.Valid() {
		return &ConfigurationError{Field: "scheme", Reason: fmt.Sprintf("unknown scheme %q", c.Scheme)}
	}
	if !(c.ContractedLoadKW > 0) || math.IsInf(c.ContractedLoadKW, 0) {
		return &ConfigurationError{Field: "contracted_load_kw", Reason: "must be > 0"}
	}
	if c.DaysInMonth < 1 {
		return &ConfigurationError{Field: "days_in_month", Reason: "must be >= 1"}
	}
	if len(c.EnergyTiers) == 0 {
		return &ConfigurationError{Field: "energy_tiers", Reason: "at least one tier is required"}
	}
	prev := 0.0
	for i, t := range c.EnergyTiers {
		if t.Rate < 0 || math.IsNaN(t.Rate) {
			return &ConfigurationError{Field: fmt.Sprintf("energy_tiers[%d].rate", i), Reason: "must be >= 0"}
		}
		last := i == len(c.EnergyTiers)-1
		if last {
			if t.UpToKWh != 0 {
				return &ConfigurationError{Field: fmt.Sprintf("energy_tiers[%d].up_to_kwh", i), Reason: "last tier must be unbounded (0)"}
			}
			continue
		}
		if !(t.UpToKWh > prev) {
			return &ConfigurationError{Field: fmt.Sprintf("energy_tiers[%d].up_to_kwh", i), Reason: "tier bounds must be strictly increasing"}
		}
		prev = t.UpToKWh
	}
	if c.FixedChargeRateLow < 0 || c.FixedChargeRateHigh < 0 {
		return &ConfigurationError{Field: "fixed_charge_rate", Reason: "must be >= 0"}
	}
	if c.RateSwitchThresholdKWh < 0 {
		return &ConfigurationError{Field: "rate_switch_threshold_kwh", Reason: "must be >= 0"}
	}
	b := c.DemandBands
	if !(b.MinimumPct > 0) || !(b.PenaltyPct > 0) {
		return &ConfigurationError{Field: "demand_bands", Reason: "thresholds must be > 0"}
	}
	if b.MinimumPct > b.PenaltyPct {
		return &ConfigurationError{Field: "demand_bands", Reason: "minimum band overlaps penalty band"}
	}
	if c.DutyRate < 0 || c.RebateRate < 0 {
		return &ConfigurationError{Field: "duty_rate/rebate_rate", Reason: "must be >= 0"}
	}
	if c.Scheme.LifeLineSwitch() {
		if !(c.RateSwitchThresholdKWh > 0) {
			return &ConfigurationError{Field: "rate_switch_threshold_kwh", Reason: "life-line switch needs a threshold > 0"}
		}
		if c.LifeLine.SmoothingDays != 0 && c.LifeLine.SmoothingDays != DefaultSmoothingDays {
			return &ConfigurationError{Field: "life_line.smoothing_days", Reason: fmt.Sprintf("must be %d", DefaultSmoothingDays)}
		}
		if c.LifeLine.LowECRate < 0 || c.LifeLine.HighECRate < 0 {
			return &ConfigurationError{Field: "life_line", Reason: "rates must be >= 0"}
		}
		if c.LifeLine.HighECRate < c.LifeLine.LowECRate {
			return &ConfigurationError{Field: "life_line.high_ec_rate", Reason: "must be >= low_ec_rate"}
		}
		// zero high rate means no fixed-charge switch
		if c.FixedChargeRateHigh != 0 && c.FixedChargeRateHigh < c.FixedChargeRateLow {
			return &ConfigurationError{Field: "fixed_charge_rate_high", Reason: "must be >= fixed_charge_rate_low"}
		}
	}
	return nil
}
