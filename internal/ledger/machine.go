package ledger

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"prepaid-reconcile/internal/model"
	"prepaid-reconcile/internal/tariff"
)

// ErrCycleClosed is returned by Step once the cycle has been billed in full.
var ErrCycleClosed = errors.New("ledger cycle is closed")

// Machine bills one cycle day by day. It is not safe for concurrent use;
// independent accounts each get their own Machine.
type Machine struct {
	cfg    model.TariffConfig
	calcs  tariff.Calculators
	logger *log.Logger

	state    State
	phase    Phase
	lastDate time.Time
}

// NewMachine validates cfg and returns a machine in the opening phase.
// A nil logger discards the per-day trace.
func NewMachine(cfg model.TariffConfig, logger *log.Logger) (*Machine, error) {
	calcs, err := tariff.ForScheme(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Machine{
		cfg:    cfg,
		calcs:  calcs,
		logger: logger,
		state:  State{Balance: cfg.OpeningBalance},
	}, nil
}

func (m *Machine) Phase() Phase { return m.phase }

func (m *Machine) State() State { return m.state }

// Close ends the cycle early. Further Steps fail with ErrCycleClosed.
func (m *Machine) Close() { m.phase = PhaseClosed }

// Step bills the next day and returns its rounded ledger row.
// On error the state is left untouched.
func (m *Machine) Step(rec model.ConsumptionRecord) (model.LedgerRow, error) {
	if m.phase == PhaseClosed {
		return model.LedgerRow{}, ErrCycleClosed
	}
	s := m.state
	day := s.Day + 1
	if err := model.ValidateRecord(day, rec, m.lastDate); err != nil {
		return model.LedgerRow{}, err
	}

	cfg := m.cfg
	daily := rec.DailyConsumptionKWh
	md := rec.MaxDemandKW
	cumBefore := s.CumConsumption
	cum := cumBefore + daily

	m.logger.Printf("**********DAY %d - %s**********", day, rec.Date.Format("2006-01-02"))
	m.logger.Printf("Daily Consumption: %.4f kWh, Max Demand: %.4f kW", daily, md)

	deduction := m.calcs.Smoother.Apply(tariff.TransitionDay{
		Day:         day,
		DailyKWh:    daily,
		CumKWh:      cum,
		MaxDemandKW: md,
	})
	progress := m.calcs.Smoother.Progress()
	if progress.Triggered && progress.TriggerDay == day {
		m.logger.Printf("Day %d: life line switch triggered, EC delta %.4f, FC delta %.4f", day, progress.TotalECDelta, progress.TotalFCDelta)
	}

	ec := m.calcs.Energy.Charge(cumBefore, daily)
	ecFinal := ec - deduction.EC
	m.logger.Printf("Daily EC: %.4f - %.4f = %.4f", ec, deduction.EC, ecFinal)

	dc := m.calcs.Demand.Charge(tariff.DemandContext{
		Day:             day,
		MaxDemandKW:     md,
		CumKWh:          cum,
		PrevMaxDemandKW: s.PrevMaxDemandKW,
		PrevPercent:     s.PrevPercent,
		Penalty:         s.Penalty,
	})
	fcFinal := dc.FixedCharge + dc.Adjustment - deduction.FC
	m.logger.Printf("Max Demand %%: %.4f, FC rate %.2f", dc.Percent, dc.Rate)
	m.logger.Printf("Daily FC Final: %.4f + %.4f - %.4f = %.4f", dc.FixedCharge, dc.Adjustment, deduction.FC, fcFinal)

	ecPlusFC := ecFinal + fcFinal
	duty := cfg.DutyRate * (ecPlusFC + dc.Penalty)
	rebate := cfg.RebateRate * ecPlusFC
	final := ecPlusFC + duty + dc.Penalty - rebate
	opening := s.Balance
	closing := opening - final
	m.logger.Printf("Daily EDP: %.4f, ED: %.4f, Rebate: %.4f", dc.Penalty, duty, rebate)
	m.logger.Printf("Daily Final Charge: %.4f, Closing Balance: %.4f", final, closing)

	s.Day = day
	s.CumConsumption = cum
	s.CumEnergyCharge += ec
	s.CumECFinal += ecFinal
	s.CumFixedCharge += dc.FixedCharge
	s.CumFCAdjustment += dc.Adjustment
	s.CumFCFinal += fcFinal
	s.CumECPlusFC += ecPlusFC
	s.CumDuty += duty
	s.CumRebate += rebate
	s.CumFinalCharge += final
	s.CumPenalty += dc.Penalty
	s.Balance = closing
	s.PrevMaxDemandKW = md
	s.PrevPercent = dc.Percent
	s.Penalty = dc.Schedule
	s.Transition = progress

	row := model.LedgerRow{
		Day:           day,
		StartDateTime: rec.Date,
		EndDateTime:   rec.Date.AddDate(0, 0, 1),

		DailyConsumption: daily,
		CumConsumption:   cum,

		DailyEnergyCharge:     ec,
		CumEnergyCharge:       s.CumEnergyCharge,
		DailyECLifeLine:       deduction.EC,
		CumECLifeLineDeducted: progress.ECDeducted,
		RemainingECLifeLine:   progress.RemainingEC(),
		DailyECFinal:          ecFinal,
		CumECFinal:            s.CumECFinal,

		MaxDemand:       md,
		DemandPercent:   dc.Percent,
		FixedChargeRate: dc.Rate,

		DailyPenalty: dc.Penalty,
		CumPenalty:   s.CumPenalty,

		DailyFCAdjustment: dc.Adjustment,
		CumFCAdjustment:   s.CumFCAdjustment,

		DailyFixedCharge:      dc.FixedCharge,
		CumFixedCharge:        s.CumFixedCharge,
		DailyFCLifeLine:       deduction.FC,
		CumFCLifeLineDeducted: progress.FCDeducted,
		RemainingFCLifeLine:   progress.RemainingFC(),
		DailyFCFinal:          fcFinal,
		CumFCFinal:            s.CumFCFinal,

		DailyECPlusFC: ecPlusFC,
		CumECPlusFC:   s.CumECPlusFC,
		DailyDuty:     duty,
		CumDuty:       s.CumDuty,
		DailyRebate:   rebate,
		CumRebate:     s.CumRebate,

		DailyFinalCharge: final,
		CumFinalCharge:   s.CumFinalCharge,

		OpeningBalance: opening,
		ClosingBalance: closing,
	}

	m.state = s
	m.lastDate = rec.Date
	m.phase = PhaseSteady
	if day >= cfg.DaysInMonth {
		m.phase = PhaseClosed
	}
	return roundRow(row), nil
}

func (m *Machine) String() string {
	return fmt.Sprintf("ledger.Machine{scheme=%s day=%d phase=%s}", m.cfg.Scheme, m.state.Day, m.phase)
}
