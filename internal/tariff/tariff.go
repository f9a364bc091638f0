package tariff

import (
	"fmt"

	"prepaid-reconcile/internal/model"
)

// EnergyCalculator prices one day of consumption given what the cycle has
// already consumed.
type EnergyCalculator interface {
	Name() string
	Charge(cumBeforeKWh, dailyKWh float64) float64
}

// DemandContext is everything a demand calculator sees for one day.
type DemandContext struct {
	Day         int // 1-based day of the cycle
	MaxDemandKW float64
	// CumKWh is month-to-date consumption including today.
	CumKWh float64

	// Zero on the first day.
	PrevMaxDemandKW float64
	PrevPercent     float64

	Penalty PenaltySchedule
}

// PenaltySchedule tracks the excess-demand penalty being spread over the
// rest of the cycle. PeakKW is zero until the first day above the penalty band.
type PenaltySchedule struct {
	PeakKW    float64
	DailyRate float64
	Charged   float64
}

// DemandCharge is the demand side of one ledger day.
type DemandCharge struct {
	Percent     float64
	Rate        float64
	FixedCharge float64
	Adjustment  float64
	Penalty     float64

	// Schedule after today's penalty has been charged.
	Schedule PenaltySchedule
}

type DemandCalculator interface {
	Name() string
	Charge(ctx DemandContext) DemandCharge
}

// TransitionDay is what the smoother sees once today's base charges are known.
type TransitionDay struct {
	Day         int
	DailyKWh    float64
	CumKWh      float64 // including today
	MaxDemandKW float64
}

// Deduction is the part of a life-line delta taken off today's charges.
type Deduction struct {
	EC float64
	FC float64
}

// TransitionSmoother spreads a one-time rate change over several days.
// Implementations are stateful and belong to a single cycle.
type TransitionSmoother interface {
	Name() string
	Apply(day TransitionDay) Deduction
	Progress() TransitionProgress
}

// TransitionProgress is the smoother's running totals after the last Apply.
type TransitionProgress struct {
	Triggered    bool    `json:"triggered"`
	TriggerDay   int     `json:"trigger_day,omitempty"`
	DaysApplied  int     `json:"days_applied"`
	TotalECDelta float64 `json:"total_ec_delta"`
	TotalFCDelta float64 `json:"total_fc_delta"`
	ECDeducted   float64 `json:"ec_deducted"`
	FCDeducted   float64 `json:"fc_deducted"`
}

func (p TransitionProgress) RemainingEC() float64 { return p.TotalECDelta - p.ECDeducted }
func (p TransitionProgress) RemainingFC() float64 { return p.TotalFCDelta - p.FCDeducted }

// Calculators is the set of per-day calculators a scheme activates.
type Calculators struct {
	Energy   EnergyCalculator
	Demand   DemandCalculator
	Smoother TransitionSmoother
}

// ForScheme validates cfg and builds the calculators its scheme needs.
// The returned smoother is fresh and must not be shared between cycles.
func ForScheme(cfg model.TariffConfig) (Calculators, error) {
	if err := cfg.Validate(); err != nil {
		return Calculators{}, err
	}
	energy := NewTieredEnergy(cfg.EnergyTiers)

	switch cfg.Scheme {
	case model.SchemeFlat:
		return Calculators{
			Energy:   energy,
			Demand:   &FlatDemand{Config: cfg},
			Smoother: NoTransition{},
		}, nil
	case model.SchemeDemandBanded:
		return Calculators{
			Energy:   energy,
			Demand:   &BandedDemand{Config: cfg},
			Smoother: NoTransition{},
		}, nil
	case model.SchemeTieredLifeLine:
		return Calculators{
			Energy:   energy,
			Demand:   &BandedDemand{Config: cfg},
			Smoother: NewLifeLine(cfg),
		}, nil
	default:
		return Calculators{}, fmt.Errorf("unsupported scheme %q", cfg.Scheme)
	}
}
