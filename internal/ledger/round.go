package ledger

import (
	"github.com/shopspring/decimal"

	"prepaid-reconcile/internal/model"
)

// Places is the number of decimals every emitted ledger value carries.
const Places = 4

func round4(x float64) float64 {
	return decimal.NewFromFloat(x).Round(Places).InexactFloat64()
}

func roundRow(r model.LedgerRow) model.LedgerRow {
	for _, p := range []*float64{
		&r.DailyConsumption, &r.CumConsumption,
		&r.DailyEnergyCharge, &r.CumEnergyCharge,
		&r.DailyECLifeLine, &r.CumECLifeLineDeducted, &r.RemainingECLifeLine,
		&r.DailyECFinal, &r.CumECFinal,
		&r.MaxDemand, &r.DemandPercent, &r.FixedChargeRate,
		&r.DailyPenalty, &r.CumPenalty,
		&r.DailyFCAdjustment, &r.CumFCAdjustment,
		&r.DailyFixedCharge, &r.CumFixedCharge,
		&r.DailyFCLifeLine, &r.CumFCLifeLineDeducted, &r.RemainingFCLifeLine,
		&r.DailyFCFinal, &r.CumFCFinal,
		&r.DailyECPlusFC, &r.CumECPlusFC,
		&r.DailyDuty, &r.CumDuty,
		&r.DailyRebate, &r.CumRebate,
		&r.DailyFinalCharge, &r.CumFinalCharge,
		&r.OpeningBalance, &r.ClosingBalance,
	} {
		*p = round4(*p)
	}
	return r
}
