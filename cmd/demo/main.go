package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"prepaid-reconcile/internal/config"
	"prepaid-reconcile/internal/ledger"
	"prepaid-reconcile/internal/model"
)

// Demo:
// - Bill the reference scenarios with the built-in formula_101/102/103 tariffs
// - Print the headline columns of each ledger
// - Optionally trace every day and write the last ledger to CSV
func main() {
	scenario := flag.String("scenario", "all", "single-day, demand-jump, life-line or all")
	cfgPath := flag.String("config", "", "Optional YAML config; its tariff replaces the built-in one")
	trace := flag.Bool("trace", false, "Print the per-day charge trace")
	outCSV := flag.String("out", "", "Optional path to write the last ledger as CSV")
	flag.Parse()

	var override *model.TariffConfig
	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		t := cfg.Tariff.ToModel()
		override = &t
	}

	var last []model.LedgerRow
	ran := 0
	for _, sc := range scenarios() {
		if *scenario != "all" && *scenario != sc.name {
			continue
		}
		ran++
		tariff := sc.tariff
		if override != nil {
			tariff = *override
		}

		engine := ledger.New()
		if *trace {
			engine.Logger = log.New(os.Stdout, "", 0)
		}
		res, err := engine.Run(tariff, sc.records)
		if err != nil {
			panic(err)
		}

		fmt.Printf("== %s (%s, %s) ==\n", sc.name, tariff.Name, tariff.Scheme)
		fmt.Println(sc.about)
		printLedger(res.Ledger)
		if res.Transition.Triggered {
			fmt.Printf("Life-line switch on day %d: EC delta=%.4f FC delta=%.4f over %d days\n",
				res.Transition.TriggerDay, res.Transition.TotalECDelta, res.Transition.TotalFCDelta, res.Transition.DaysApplied)
		}
		fmt.Printf("Closing Balance=%.4f\n\n", res.ClosingBalance)
		last = res.Ledger
	}
	if ran == 0 {
		fmt.Printf("unknown scenario %q\n", *scenario)
		os.Exit(2)
	}

	if *outCSV != "" {
		if err := ledger.WriteLedgerCSV(*outCSV, last); err != nil {
			panic(err)
		}
		fmt.Printf("Wrote CSV: %s\n", *outCSV)
	}
}

type demoScenario struct {
	name    string
	about   string
	tariff  model.TariffConfig
	records []model.ConsumptionRecord
}

func scenarios() []demoScenario {
	flat := model.TariffConfig{
		Name:               "formula_101",
		Scheme:             model.SchemeFlat,
		ContractedLoadKW:   1,
		DaysInMonth:        31,
		EnergyTiers:        []model.EnergyTier{{Rate: 3}},
		FixedChargeRateLow: 50,
		DemandBands:        model.DemandBands{MinimumPct: 75, PenaltyPct: 100},
		DutyRate:           0.05,
		RebateRate:         0.02,
		OpeningBalance:     5000,
	}

	banded := flat
	banded.Name = "formula_102"
	banded.Scheme = model.SchemeDemandBanded

	tiered := banded
	tiered.Name = "formula_103"
	tiered.Scheme = model.SchemeTieredLifeLine
	tiered.EnergyTiers = []model.EnergyTier{{UpToKWh: 100, Rate: 3}, {UpToKWh: 150, Rate: 5.5}, {UpToKWh: 300, Rate: 6}, {Rate: 6.5}}
	tiered.FixedChargeRateHigh = 110
	tiered.RateSwitchThresholdKWh = 100
	tiered.LifeLine = model.LifeLine{LowECRate: 3, HighECRate: 5.5, SmoothingDays: 3}

	jump := make([]float64, 31)
	for i := range jump {
		jump[i] = 0.9
		if i >= 4 {
			jump[i] = 1.3
		}
	}

	return []demoScenario{
		{
			name:    "single-day",
			about:   "10 kWh at 0.5 kW: expect final charge 32.1460 and closing balance 4967.8540",
			tariff:  flat,
			records: days([]float64{10}, []float64{0.5}),
		},
		{
			name:    "demand-jump",
			about:   "demand 0.9 kW -> 1.3 kW on day 5: adjustment on day 5, penalty spread over 27 days",
			tariff:  banded,
			records: days(repeat(5, 31), jump),
		},
		{
			name:    "life-line",
			about:   "6 kWh/day crosses 100 kWh on day 17: rate switch smoothed over 3 days",
			tariff:  tiered,
			records: days(repeat(6, 31), repeat(0.7, 31)),
		},
	}
}

func days(kwh, kw []float64) []model.ConsumptionRecord {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.ConsumptionRecord, len(kwh))
	for i := range kwh {
		out[i] = model.ConsumptionRecord{Date: start.AddDate(0, 0, i), DailyConsumptionKWh: kwh[i], MaxDemandKW: kw[i]}
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func printLedger(rows []model.LedgerRow) {
	fmt.Printf("%-4s %-10s %6s %6s %9s %9s %9s %9s %9s %11s\n",
		"day", "date", "kWh", "kW", "EC", "FC", "adj", "penalty", "final", "closing")
	for _, r := range rows {
		fmt.Printf("%-4d %-10s %6.2f %6.2f %9.4f %9.4f %9.4f %9.4f %9.4f %11.4f\n",
			r.Day,
			r.StartDateTime.Format("2006-01-02"),
			r.DailyConsumption,
			r.MaxDemand,
			r.DailyECFinal,
			r.DailyFCFinal,
			r.DailyFCAdjustment,
			r.DailyPenalty,
			r.DailyFinalCharge,
			r.ClosingBalance,
		)
	}
}
