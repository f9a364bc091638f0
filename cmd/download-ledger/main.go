package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"prepaid-reconcile/internal/config"
	"prepaid-reconcile/internal/data"
	"prepaid-reconcile/internal/report"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "Optional YAML config (source window, API base, consumers file)")
		consumers = flag.String("consumers", "", "Consumer CSV (default: source.consumers_file or CONSUMERS_FILE)")
		base      = flag.String("base", "", "Ledger API base URL (default: source.ledger_api_base or LEDGER_API_BASE)")
		start     = flag.String("start", "", "Window start, e.g. 2025-10-01")
		end       = flag.String("end", "", "Window end, exclusive, e.g. 2025-11-01")
		outPath   = flag.String("output", "Prepaid_Ledger.xlsx", "Output workbook, one sheet per account")
		jsonDir   = flag.String("json-dir", "", "Optional directory to also save each ledger as JSON")
		workers   = flag.Int("workers", 4, "Accounts fetched in parallel")
		timeout   = flag.Duration("timeout", 30*time.Second, "Per-request timeout")
	)
	flag.Parse()

	src := config.SourceConfig{}
	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		src = cfg.Source
	}
	if *start != "" {
		src.Start = *start
	}
	if *end != "" {
		src.End = *end
	}
	from, to, err := src.Window()
	if err != nil {
		log.Fatal(err)
	}

	accountsPath := firstNonEmpty(*consumers, src.ConsumersFile, data.GetDefaultAccountsPath())
	accounts, err := data.LoadAccounts(accountsPath)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Downloading %d ledgers from %s to %s\n", len(accounts), from.Format("2006-01-02"), to.Format("2006-01-02"))

	client := data.NewLedgerClient(firstNonEmpty(*base, src.LedgerAPIBase, os.Getenv("LEDGER_API_BASE")), *timeout)

	sheets := make([]report.AccountSheet, len(accounts))
	fetched := make([]bool, len(accounts))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(*workers, 1))
	for i, acct := range accounts {
		i, acct := i, acct // per-iteration copies for the goroutine (go 1.21 loop semantics)
		g.Go(func() error {
			rows, err := client.FetchLedger(ctx, acct.AccountID, from, to)
			if err != nil {
				fmt.Printf("  Warning: failed to fetch %s: %v\n", acct.AccountID, err)
				return nil
			}
			if len(rows) == 0 {
				fmt.Printf("  Warning: no ledger rows for %s in window\n", acct.AccountID)
				return nil
			}
			sheets[i] = report.AccountSheet{Name: acct.ReportID, Rows: rows}
			fetched[i] = true
			if *jsonDir != "" {
				path := filepath.Join(*jsonDir, acct.ReportID+".json")
				if err := data.SaveLedgerJSON(path, rows); err != nil {
					fmt.Printf("  Warning: failed to save %s: %v\n", path, err)
				}
			}
			fmt.Printf("  Fetched %s: %d rows\n", acct.ReportID, len(rows))
			return nil
		})
	}
	_ = g.Wait()

	var keep []report.AccountSheet
	for i, ok := range fetched {
		if ok {
			keep = append(keep, sheets[i])
		}
	}
	if len(keep) == 0 {
		log.Fatal("No ledgers downloaded")
	}
	if err := report.WriteLedgerXLSX(*outPath, keep); err != nil {
		log.Fatalf("Failed to write workbook: %v", err)
	}
	fmt.Printf("Saved %d/%d ledgers to %s\n", len(keep), len(accounts), *outPath)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
