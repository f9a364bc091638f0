package model

import "time"

// LedgerRow is one day of a prepaid ledger.
// JSON names match the upstream daily_prepaid_ledger columns so the same type
// carries both computed rows and rows fetched from the billing engine.
type LedgerRow struct {
	Day int `json:"day"`

	StartDateTime  time.Time `json:"start_date_time"`
	EndDateTime    time.Time `json:"end_date_time"`
	AccountID      string    `json:"account_id,omitempty"`
	MeterNumber    string    `json:"meter_number,omitempty"`
	SupplyTypeCode string    `json:"applied_supply_type_code,omitempty"`

	DailyConsumption float64 `json:"daily_consumption"`
	CumConsumption   float64 `json:"cumm_daily_consumption_mtd"`

	DailyEnergyCharge     float64 `json:"daily_consumption_in_rupees"`
	CumEnergyCharge       float64 `json:"cumm_daily_consumption_rupees_mtd"`
	DailyECLifeLine       float64 `json:"daily_ec_life_line_switch_charge"`
	CumECLifeLineDeducted float64 `json:"cumm_ec_life_line_switch_charge_deducted"`
	RemainingECLifeLine   float64 `json:"remaining_ec_life_line_switch_charge"`
	DailyECFinal          float64 `json:"daily_ec_final_charge"`
	CumECFinal            float64 `json:"cumm_ec_final_charges_mtd"`

	MaxDemand       float64 `json:"max_demand"`
	DemandPercent   float64 `json:"max_demand_percentage"`
	FixedChargeRate float64 `json:"fc_rate"`

	DailyPenalty float64 `json:"daily_max_demand_penalty"`
	CumPenalty   float64 `json:"cumm_daily_max_demand_penalty_mtd"`

	DailyFCAdjustment float64 `json:"daily_fixed_charge_adjustment"`
	CumFCAdjustment   float64 `json:"cumm_daily_fixed_charge_adjustment_mtd"`

	DailyFixedCharge      float64 `json:"daily_fixed_charges"`
	CumFixedCharge        float64 `json:"cumm_daily_fixed_charges_mtd"`
	DailyFCLifeLine       float64 `json:"daily_fc_life_line_switch_charge"`
	CumFCLifeLineDeducted float64 `json:"cumm_fc_life_line_switch_charge_deducted"`
	RemainingFCLifeLine   float64 `json:"remaining_fc_life_line_switch_charge"`
	DailyFCFinal          float64 `json:"daily_fc_final_charge"`
	CumFCFinal            float64 `json:"cumm_fc_final_charges_mtd"`

	DailyECPlusFC float64 `json:"daily_ec_plus_fc_charge"`
	CumECPlusFC   float64 `json:"cumm_daily_ec_plus_fc_charge_mtd"`

	DailyDuty float64 `json:"daily_ed_charge"`
	CumDuty   float64 `json:"cumm_ed_charges_mtd"`

	DailyRebate float64 `json:"daily_final_rebate"`
	CumRebate   float64 `json:"cumm_daily_final_rebate_mtd"`

	DailyFinalCharge float64 `json:"daily_final_charge"`
	CumFinalCharge   float64 `json:"cumm_daily_final_charge_mtd"`

	OpeningBalance float64 `json:"opening_balance"`
	ClosingBalance float64 `json:"closing_balance"`
}

// Column names a numeric ledger field.
type Column struct {
	Name  string
	Value func(r *LedgerRow) float64
}

var (
	colDailyConsumption      = Column{"daily_consumption", func(r *LedgerRow) float64 { return r.DailyConsumption }}
	colCumConsumption        = Column{"cumm_daily_consumption_mtd", func(r *LedgerRow) float64 { return r.CumConsumption }}
	colDailyEnergyCharge     = Column{"daily_consumption_in_rupees", func(r *LedgerRow) float64 { return r.DailyEnergyCharge }}
	colCumEnergyCharge       = Column{"cumm_daily_consumption_rupees_mtd", func(r *LedgerRow) float64 { return r.CumEnergyCharge }}
	colCumECLifeLineDeducted = Column{"cumm_ec_life_line_switch_charge_deducted", func(r *LedgerRow) float64 { return r.CumECLifeLineDeducted }}
	colRemainingECLifeLine   = Column{"remaining_ec_life_line_switch_charge", func(r *LedgerRow) float64 { return r.RemainingECLifeLine }}
	colDailyECFinal          = Column{"daily_ec_final_charge", func(r *LedgerRow) float64 { return r.DailyECFinal }}
	colCumECFinal            = Column{"cumm_ec_final_charges_mtd", func(r *LedgerRow) float64 { return r.CumECFinal }}
	colMaxDemand             = Column{"max_demand", func(r *LedgerRow) float64 { return r.MaxDemand }}
	colDailyPenalty          = Column{"daily_max_demand_penalty", func(r *LedgerRow) float64 { return r.DailyPenalty }}
	colCumPenalty            = Column{"cumm_daily_max_demand_penalty_mtd", func(r *LedgerRow) float64 { return r.CumPenalty }}
	colDailyFCAdjustment     = Column{"daily_fixed_charge_adjustment", func(r *LedgerRow) float64 { return r.DailyFCAdjustment }}
	colCumFCAdjustment       = Column{"cumm_daily_fixed_charge_adjustment_mtd", func(r *LedgerRow) float64 { return r.CumFCAdjustment }}
	colDailyFixedCharge      = Column{"daily_fixed_charges", func(r *LedgerRow) float64 { return r.DailyFixedCharge }}
	colCumFixedCharge        = Column{"cumm_daily_fixed_charges_mtd", func(r *LedgerRow) float64 { return r.CumFixedCharge }}
	colCumFCLifeLineDeducted = Column{"cumm_fc_life_line_switch_charge_deducted", func(r *LedgerRow) float64 { return r.CumFCLifeLineDeducted }}
	colRemainingFCLifeLine   = Column{"remaining_fc_life_line_switch_charge", func(r *LedgerRow) float64 { return r.RemainingFCLifeLine }}
	colDailyFCFinal          = Column{"daily_fc_final_charge", func(r *LedgerRow) float64 { return r.DailyFCFinal }}
	colCumFCFinal            = Column{"cumm_fc_final_charges_mtd", func(r *LedgerRow) float64 { return r.CumFCFinal }}
	colDailyECPlusFC         = Column{"daily_ec_plus_fc_charge", func(r *LedgerRow) float64 { return r.DailyECPlusFC }}
	colCumECPlusFC           = Column{"cumm_daily_ec_plus_fc_charge_mtd", func(r *LedgerRow) float64 { return r.CumECPlusFC }}
	colDailyDuty             = Column{"daily_ed_charge", func(r *LedgerRow) float64 { return r.DailyDuty }}
	colCumDuty               = Column{"cumm_ed_charges_mtd", func(r *LedgerRow) float64 { return r.CumDuty }}
	colDailyRebate           = Column{"daily_final_rebate", func(r *LedgerRow) float64 { return r.DailyRebate }}
	colCumRebate             = Column{"cumm_daily_final_rebate_mtd", func(r *LedgerRow) float64 { return r.CumRebate }}
	colDailyFinalCharge      = Column{"daily_final_charge", func(r *LedgerRow) float64 { return r.DailyFinalCharge }}
	colCumFinalCharge        = Column{"cumm_daily_final_charge_mtd", func(r *LedgerRow) float64 { return r.CumFinalCharge }}
	colOpeningBalance        = Column{"opening_balance", func(r *LedgerRow) float64 { return r.OpeningBalance }}
	colClosingBalance        = Column{"closing_balance", func(r *LedgerRow) float64 { return r.ClosingBalance }}
)

// LedgerColumns is every compared ledger column in upstream report order.
var LedgerColumns = []Column{
	colDailyConsumption,
	colCumConsumption,
	colDailyEnergyCharge,
	colCumEnergyCharge,
	colCumECLifeLineDeducted,
	colRemainingECLifeLine,
	colDailyECFinal,
	colCumECFinal,
	colMaxDemand,
	colDailyPenalty,
	colCumPenalty,
	colDailyFCAdjustment,
	colCumFCAdjustment,
	colDailyFixedCharge,
	colCumFixedCharge,
	colCumFCLifeLineDeducted,
	colRemainingFCLifeLine,
	colDailyFCFinal,
	colCumFCFinal,
	colDailyECPlusFC,
	colCumECPlusFC,
	colDailyDuty,
	colCumDuty,
	colDailyRebate,
	colCumRebate,
	colDailyFinalCharge,
	colCumFinalCharge,
	colOpeningBalance,
	colClosingBalance,
}

var flatColumns = []Column{
	colDailyConsumption,
	colCumConsumption,
	colDailyEnergyCharge,
	colCumEnergyCharge,
	colDailyFixedCharge,
	colCumFixedCharge,
	colDailyECPlusFC,
	colCumECPlusFC,
	colDailyDuty,
	colCumDuty,
	colDailyRebate,
	colCumRebate,
	colDailyFinalCharge,
	colCumFinalCharge,
	colOpeningBalance,
	colClosingBalance,
}

var demandColumns = []Column{
	colDailyConsumption,
	colCumConsumption,
	colDailyEnergyCharge,
	colCumEnergyCharge,
	colDailyPenalty,
	colCumPenalty,
	colDailyFCAdjustment,
	colCumFCAdjustment,
	colDailyFixedCharge,
	colCumFixedCharge,
	colDailyECFinal,
	colCumECFinal,
	colDailyFCFinal,
	colCumFCFinal,
	colDailyECPlusFC,
	colCumECPlusFC,
	colDailyDuty,
	colCumDuty,
	colDailyRebate,
	colCumRebate,
	colDailyFinalCharge,
	colCumFinalCharge,
	colOpeningBalance,
	colClosingBalance,
}

// ColumnsFor returns the columns a scheme produces expectations for.
func ColumnsFor(s Scheme) []Column {
	switch s {
	case SchemeFlat:
		return flatColumns
	case SchemeDemandBanded:
		return demandColumns
	default:
		return LedgerColumns
	}
}

// ColumnByName looks up a compared column.
func ColumnByName(name string) (Column, bool) {
	for _, c := range LedgerColumns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames lists the names of cols.
func ColumnNames(cols []Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.Name)
	}
	return out
}
