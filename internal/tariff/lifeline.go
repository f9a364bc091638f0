package tariff

import "prepaid-reconcile/internal/model"

// NoTransition is the smoother for schemes without a life-line switch.
type NoTransition struct{}

func (NoTransition) Name() string                  { return "none" }
func (NoTransition) Apply(TransitionDay) Deduction { return Deduction{} }
func (NoTransition) Progress() TransitionProgress  { return TransitionProgress{} }

// LifeLine handles the one-time switch from life-line to regular rates.
// The first day month-to-date consumption exceeds the threshold, the cycle's
// earlier consumption and fixed charges are repriced and the difference is
// taken off EC and FC in equal slices over SmoothingDays days.
type LifeLine struct {
	cfg   model.TariffConfig
	slots int

	progress TransitionProgress
}

func NewLifeLine(cfg model.TariffConfig) *LifeLine {
	return &LifeLine{cfg: cfg, slots: cfg.SmoothingDays()}
}

func (l *LifeLine) Name() string { return "life_line" }

func (l *LifeLine) Progress() TransitionProgress { return l.progress }

func (l *LifeLine) Apply(day TransitionDay) Deduction {
	p := &l.progress
	if !p.Triggered && day.CumKWh > l.cfg.RateSwitchThresholdKWh {
		l.trigger(day)
	}
	if !p.Triggered || p.DaysApplied >= l.slots {
		return Deduction{}
	}

	p.DaysApplied++
	var d Deduction
	if p.DaysApplied == l.slots {
		d.EC = p.TotalECDelta - p.ECDeducted
		d.FC = p.TotalFCDelta - p.FCDeducted
	} else {
		d.EC = p.TotalECDelta / float64(l.slots)
		d.FC = p.TotalFCDelta / float64(l.slots)
	}
	p.ECDeducted += d.EC
	p.FCDeducted += d.FC
	return d
}

func (l *LifeLine) trigger(day TransitionDay) {
	cfg := l.cfg
	cumBefore := day.CumKWh - day.DailyKWh
	load := cfg.ContractedLoadKW

	l.progress = TransitionProgress{
		Triggered:    true,
		TriggerDay:   day.Day,
		TotalECDelta: cumBefore*cfg.LifeLine.HighECRate - cumBefore*cfg.LifeLine.LowECRate,
		TotalFCDelta: (cfg.FixedChargeRate(day.CumKWh) - cfg.FixedChargeRateLow) * load *
			float64(day.Day-1) * (day.MaxDemandKW / load) / float64(cfg.DaysInMonth),
	}
}
