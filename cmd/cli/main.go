package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"prepaid-reconcile/internal/config"
	"prepaid-reconcile/internal/data"
	"prepaid-reconcile/internal/ledger"
	"prepaid-reconcile/internal/model"
	"prepaid-reconcile/internal/reconcile"
	"prepaid-reconcile/internal/report"
	"prepaid-reconcile/internal/store/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "compute":
		cmdCompute(os.Args[2:])
	case "reconcile":
		cmdReconcile(os.Args[2:])
	case "batch":
		cmdBatch(os.Args[2:])
	case "trigger":
		cmdTrigger(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli compute --tariff examples/tariffs/formula_102.yaml --readings readings.json --out results/ledger.csv")
	fmt.Println("  cli reconcile --config examples/config.yaml [--ledger ledger.json] [--db runs.db]")
	fmt.Println("  cli batch --config examples/config.yaml [--consumers Consumer_details.csv] [--workers 4]")
	fmt.Println("  cli trigger --incremental | --account 2222550013 --day 2025-10-15")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - compute bills a cycle from readings (JSON, a ledger export, or the daily-load database)")
	fmt.Println("  - reconcile exits 1 when any ledger row mismatches")
	fmt.Println("  - batch ranks accounts worst first by success rate")
}

func cmdCompute(args []string) {
	fs := flag.NewFlagSet("compute", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (tariff and source)")
	tariffPath := fs.String("tariff", "", "Path to a tariff preset YAML (overrides --config tariff)")
	readingsPath := fs.String("readings", "", "Readings JSON: [{date, daily_consumption, max_demand}]")
	ledgerPath := fs.String("ledger", "", "Upstream ledger export (.json or .xlsx) to re-bill from its readings")
	dsn := fs.String("dsn", "", "Postgres DSN of the daily-load database")
	meter := fs.String("meter", "", "Meter number (with --dsn)")
	start := fs.String("start", "", "Window start (with --dsn), e.g. 2025-10-01")
	end := fs.String("end", "", "Window end, exclusive (with --dsn)")
	outPath := fs.String("out", "results/ledger.csv", "Output CSV path")
	xlsxPath := fs.String("xlsx", "", "Optional ledger workbook path")
	trace := fs.Bool("trace", false, "Print the per-day charge trace")
	_ = fs.Parse(args)

	var cfg *config.Config
	if *cfgPath != "" {
		c, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = c
	}
	tariff, err := pickTariff(cfg, *tariffPath)
	if err != nil {
		log.Fatal(err)
	}

	var records []model.ConsumptionRecord
	switch {
	case *readingsPath != "":
		records, err = data.LoadReadingsJSON(*readingsPath)
	case *ledgerPath != "":
		var rows []model.LedgerRow
		rows, err = loadLedgerFile(*ledgerPath)
		records = model.ReadingsFromLedger(rows)
	case *dsn != "" || (cfg != nil && cfg.Source.PostgresDSN != ""):
		records, err = readDailyLoad(cfg, *dsn, *meter, *start, *end)
	default:
		log.Fatal("one of --readings, --ledger or --dsn is required")
	}
	if err != nil {
		log.Fatalf("load readings: %v", err)
	}

	engine := ledger.New()
	if *trace {
		engine.Logger = log.New(os.Stdout, "", 0)
	}
	res, err := engine.Run(tariff, records)
	if err != nil {
		log.Fatalf("compute: %v", err)
	}

	if err := ledger.WriteLedgerCSV(*outPath, res.Ledger); err != nil {
		log.Fatalf("write ledger: %v", err)
	}
	fmt.Printf("Wrote %d rows to %s\n", len(res.Ledger), *outPath)
	if *xlsxPath != "" {
		if err := report.WriteLedgerXLSX(*xlsxPath, []report.AccountSheet{{Name: tariff.Name, Rows: res.Ledger}}); err != nil {
			log.Fatalf("write workbook: %v", err)
		}
		fmt.Printf("Wrote workbook %s\n", *xlsxPath)
	}
	fmt.Printf("Tariff=%s Closing Balance=%.4f\n", tariff.Name, res.ClosingBalance)
	if res.Transition.Triggered {
		fmt.Printf("Life-line switch on day %d: EC delta=%.4f FC delta=%.4f\n",
			res.Transition.TriggerDay, res.Transition.TotalECDelta, res.Transition.TotalFCDelta)
	}
}

func cmdReconcile(args []string) {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	ledgerPath := fs.String("ledger", "", "Upstream ledger export (.json or .xlsx) instead of the ledger API")
	account := fs.String("account", "", "Account ID (overrides source.account_id)")
	dbPath := fs.String("db", "", "Optional SQLite path to store the run")
	xlsxPath := fs.String("xlsx", "", "Comparison workbook path (overrides report.xlsx)")
	csvPath := fs.String("csv", "", "Computed ledger CSV path (overrides report.csv)")
	pdfPath := fs.String("pdf", "", "Summary PDF path (overrides report.pdf)")
	verbose := fs.Bool("verbose", false, "Print the per-day charge trace")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *account != "" {
		cfg.Source.AccountID = *account
	}
	if *ledgerPath != "" {
		cfg.Source.LedgerFile = *ledgerPath
	}
	cols, err := cfg.Reconcile.ResolveColumns()
	if err != nil {
		log.Fatal(err)
	}

	actual, err := loadActual(context.Background(), cfg)
	if err != nil {
		log.Fatalf("load ledger: %v", err)
	}

	opts := reconcile.Options{Tolerance: cfg.Reconcile.ToleranceValue(), Columns: cols}
	if *verbose {
		opts.Logger = log.New(os.Stdout, "", 0)
	}
	out, err := reconcile.Run(cfg.Tariff.ToModel(), actual, opts)
	if err != nil {
		log.Fatalf("reconcile: %v", err)
	}
	if out.AccountID == "" {
		out.AccountID = cfg.Source.AccountID
	}

	writeReports(out, pick(*xlsxPath, cfg.Report.XLSX), pick(*csvPath, cfg.Report.CSV), pick(*pdfPath, cfg.Report.PDF))

	if *dbPath != "" {
		store, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("open run store: %v", err)
		}
		run, err := store.SaveRun(context.Background(), out)
		store.Close()
		if err != nil {
			log.Fatalf("store run: %v", err)
		}
		fmt.Printf("Stored run %s\n", run.ID)
	}

	printSummary(os.Stdout, out)
	if !out.Report.Pass() {
		os.Exit(1)
	}
}

func cmdTrigger(args []string) {
	fs := flag.NewFlagSet("trigger", flag.ExitOnError)
	base := fs.String("base", os.Getenv("LEDGER_API_BASE"), "Ledger API base URL")
	incremental := fs.Bool("incremental", false, "Run the incremental task")
	account := fs.String("account", "", "Account ID for the daily ledger task")
	day := fs.String("day", "", "Day for the daily ledger task, e.g. 2025-10-15")
	timeout := fs.Duration("timeout", 30*time.Second, "Request timeout")
	_ = fs.Parse(args)

	client := data.NewLedgerClient(*base, *timeout)
	ctx := context.Background()

	switch {
	case *incremental:
		if err := client.TriggerIncremental(ctx); err != nil {
			log.Fatalf("incremental task: %v", err)
		}
		fmt.Println("Incremental task triggered")
	case *account != "" && *day != "":
		d, err := config.ParseTime(*day)
		if err != nil {
			log.Fatal(err)
		}
		if err := client.TriggerDailyLedger(ctx, *account, d); err != nil {
			log.Fatalf("daily ledger task: %v", err)
		}
		fmt.Printf("Daily ledger task triggered for %s on %s\n", *account, d.Format("2006-01-02"))
	default:
		fmt.Println("--incremental or --account with --day is required")
		os.Exit(2)
	}
}

func pickTariff(cfg *config.Config, tariffPath string) (model.TariffConfig, error) {
	var tc config.TariffConfig
	switch {
	case tariffPath != "":
		t, err := config.LoadTariffFile(tariffPath)
		if err != nil {
			return model.TariffConfig{}, err
		}
		if t.Name == "" {
			t.Name = strings.TrimSuffix(filepath.Base(tariffPath), filepath.Ext(tariffPath))
		}
		tc = t
	case cfg != nil:
		tc = cfg.Tariff
	default:
		return model.TariffConfig{}, fmt.Errorf("--tariff or --config is required")
	}
	tc.ApplyDefaults()
	m := tc.ToModel()
	if err := m.Validate(); err != nil {
		return model.TariffConfig{}, err
	}
	return m, nil
}

func readDailyLoad(cfg *config.Config, dsn, meter, start, end string) ([]model.ConsumptionRecord, error) {
	if cfg != nil {
		dsn = pick(dsn, cfg.Source.PostgresDSN)
		start = pick(start, cfg.Source.Start)
		end = pick(end, cfg.Source.End)
	}
	if meter == "" {
		return nil, fmt.Errorf("--meter is required with --dsn")
	}
	from, to, err := config.SourceConfig{Start: start, End: end}.Window()
	if err != nil {
		return nil, err
	}
	r, err := data.OpenDailyLoad(dsn)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Readings(context.Background(), meter, from, to)
}

// loadActual reads the upstream ledger from source.ledger_file or the ledger API.
func loadActual(ctx context.Context, cfg *config.Config) ([]model.LedgerRow, error) {
	var start, end time.Time
	if cfg.Source.Start != "" || cfg.Source.End != "" {
		var err error
		if start, end, err = cfg.Source.Window(); err != nil {
			return nil, err
		}
	}

	if cfg.Source.LedgerFile != "" {
		rows, err := loadLedgerFile(cfg.Source.LedgerFile)
		if err != nil {
			return nil, err
		}
		if !start.IsZero() {
			rows = data.FilterWindow(rows, start, end)
		}
		return rows, nil
	}

	if cfg.Source.AccountID == "" || start.IsZero() {
		return nil, fmt.Errorf("source.account_id, source.start and source.end are required without a ledger file")
	}
	client := data.NewLedgerClient(pick(cfg.Source.LedgerAPIBase, os.Getenv("LEDGER_API_BASE")), cfg.Source.Timeout())
	ctx, cancel := context.WithTimeout(ctx, cfg.Source.Timeout())
	defer cancel()
	return client.FetchLedger(ctx, cfg.Source.AccountID, start, end)
}

func loadLedgerFile(path string) ([]model.LedgerRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return data.LoadLedgerXLSX(path, "")
	default:
		return data.LoadLedgerJSON(path)
	}
}

func writeReports(out *reconcile.Outcome, xlsxPath, csvPath, pdfPath string) {
	if xlsxPath != "" {
		if err := report.WriteComparisonXLSX(xlsxPath, out); err != nil {
			log.Fatalf("write workbook: %v", err)
		}
		fmt.Printf("Wrote comparison workbook %s\n", xlsxPath)
	}
	if csvPath != "" {
		if err := ledger.WriteLedgerCSV(csvPath, out.Computed); err != nil {
			log.Fatalf("write ledger: %v", err)
		}
		fmt.Printf("Wrote computed ledger %s\n", csvPath)
	}
	if pdfPath != "" {
		if err := report.WriteSummaryPDF(pdfPath, out, time.Now()); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
		fmt.Printf("Wrote summary %s\n", pdfPath)
	}
}

func printSummary(w io.Writer, out *reconcile.Outcome) {
	rep := out.Report
	fmt.Fprintf(w, "Account=%s Tariff=%s\n", out.AccountID, out.Tariff)
	fmt.Fprintf(w, "Test Case Result: %s\n", rep.Verdict)
	fmt.Fprintf(w, "Total Records: %d  Passed: %d  Failed: %d  Success Rate: %.2f%%\n",
		rep.Total, rep.Passed, rep.Failed, rep.SuccessRate)
	fmt.Fprintf(w, "Remarks: %s\n", rep.Remarks)
}

func pick(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
