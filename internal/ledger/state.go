package ledger

import "prepaid-reconcile/internal/tariff"

// State is everything carried from one ledger day to the next.
// Values are kept at full precision; rounding happens only when a row is emitted.
type State struct {
	Day int

	CumConsumption  float64
	CumEnergyCharge float64
	CumECFinal      float64
	CumFixedCharge  float64
	CumFCAdjustment float64
	CumFCFinal      float64
	CumECPlusFC     float64
	CumDuty         float64
	CumRebate       float64
	CumFinalCharge  float64
	CumPenalty      float64

	Balance float64

	PrevMaxDemandKW float64
	PrevPercent     float64

	Penalty    tariff.PenaltySchedule
	Transition tariff.TransitionProgress
}

// Phase is where a Machine is in its billing cycle.
type Phase int

const (
	PhaseOpening Phase = iota
	PhaseSteady
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseOpening:
		return "opening"
	case PhaseSteady:
		return "steady"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}
