package model

// Scheme selects which calculators a tariff activates.
// Keep these values stable; they appear in YAML presets and API payloads.
type Scheme string

const (
	// SchemeFlat bills a flat minimum fixed charge regardless of demand.
	SchemeFlat Scheme = "flat"
	// SchemeDemandBanded adds demand bands, the fixed-charge true-up and the excess-demand penalty.
	SchemeDemandBanded Scheme = "demand_banded"
	// SchemeTieredLifeLine is SchemeDemandBanded plus the one-time life-line rate switch.
	SchemeTieredLifeLine Scheme = "tiered_lifeline"
)

func (s Scheme) Valid() bool {
	switch s {
	case SchemeFlat, SchemeDemandBanded, SchemeTieredLifeLine:
		return true
	default:
		return false
	}
}

// DemandBilling reports whether demand bands, adjustment and penalty apply.
func (s Scheme) DemandBilling() bool {
	return s == SchemeDemandBanded || s == SchemeTieredLifeLine
}

// LifeLineSwitch reports whether the one-time rate transition can fire.
func (s Scheme) LifeLineSwitch() bool {
	return s == SchemeTieredLifeLine
}
