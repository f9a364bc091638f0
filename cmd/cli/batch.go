package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"prepaid-reconcile/internal/config"
	"prepaid-reconcile/internal/data"
	"prepaid-reconcile/internal/model"
	"prepaid-reconcile/internal/reconcile"
	"prepaid-reconcile/internal/report"
)

func cmdBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (tariff, window, ledger API)")
	consumers := fs.String("consumers", "", "Consumer CSV (accountId, meterSrno, Report_ID)")
	workers := fs.Int("workers", 4, "Accounts reconciled in parallel")
	outDir := fs.String("out-dir", "", "Optional directory for one comparison workbook per account")
	summaryPath := fs.String("summary", "", "Optional JSON path for the ranked summary")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	start, end, err := cfg.Source.Window()
	if err != nil {
		log.Fatal(err)
	}
	cols, err := cfg.Reconcile.ResolveColumns()
	if err != nil {
		log.Fatal(err)
	}

	accountsPath := pick(*consumers, cfg.Source.ConsumersFile, data.GetDefaultAccountsPath())
	accounts, err := data.LoadAccounts(accountsPath)
	if err != nil {
		log.Fatal(err)
	}
	if len(accounts) == 0 {
		log.Fatalf("no accounts in %s", accountsPath)
	}

	client := data.NewLedgerClient(pick(cfg.Source.LedgerAPIBase, os.Getenv("LEDGER_API_BASE")), cfg.Source.Timeout())
	tariff := cfg.Tariff.ToModel()

	summaries := make([]reconcile.AccountSummary, len(accounts))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(*workers, 1))
	for i, acct := range accounts {
		i, acct := i, acct // per-iteration copies for the goroutine (go 1.21 loop semantics)
		g.Go(func() error {
			out, err := reconcileAccount(ctx, client, tariff, acct, start, end, reconcile.Options{
				Tolerance: cfg.Reconcile.ToleranceValue(),
				Columns:   cols,
			}, cfg.Source.Timeout())
			if err != nil {
				log.Printf("[Batch] %s: %v", acct.ReportID, err)
			} else if *outDir != "" {
				path := filepath.Join(*outDir, acct.ReportID+".xlsx")
				if werr := report.WriteComparisonXLSX(path, out); werr != nil {
					log.Printf("[Batch] %s: write workbook: %v", acct.ReportID, werr)
				}
			}
			summaries[i] = reconcile.Summarize(acct.AccountID, acct.ReportID, out, err)
			return nil
		})
	}
	_ = g.Wait()

	ranked := reconcile.RankBySuccessRate(summaries)
	fmt.Printf("%-4s %-14s %-28s %-7s %-6s %-7s %-9s %s\n", "rank", "account", "report", "result", "rows", "failed", "success%", "error")
	failed := 0
	for i, s := range ranked {
		if s.Verdict != reconcile.VerdictPass {
			failed++
		}
		fmt.Printf("%-4d %-14s %-28s %-7s %-6d %-7d %-9.2f %s\n",
			i+1, s.AccountID, s.ReportID, s.Verdict, s.Total, s.Failed, s.SuccessRate, s.Error)
	}
	fmt.Printf("%d of %d accounts passed\n", len(ranked)-failed, len(ranked))

	if *summaryPath != "" {
		raw, err := json.MarshalIndent(ranked, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*summaryPath, raw, 0644); err != nil {
			log.Fatal(err)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func reconcileAccount(ctx context.Context, client *data.LedgerClient, tariff model.TariffConfig, acct data.Account,
	start, end time.Time, opts reconcile.Options, timeout time.Duration) (*reconcile.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := client.FetchLedger(ctx, acct.AccountID, start, end)
	if err != nil {
		return nil, err
	}
	out, err := reconcile.Run(tariff, rows, opts)
	if err != nil {
		return nil, err
	}
	if out.AccountID == "" {
		out.AccountID = acct.AccountID
	}
	return out, nil
}
