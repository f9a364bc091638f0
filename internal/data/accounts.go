package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Account is one line of the consumer list.
type Account struct {
	AccountID   string `json:"account_id"`
	MeterNumber string `json:"meter_number"`
	ReportID    string `json:"report_id"`
}

// LoadAccounts reads the consumer CSV (accountId, meterSrno, Report_ID).
func LoadAccounts(path string) ([]Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read consumers file: %w", err)
	}
	defer f.Close()

	accounts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse consumers file: %w", err)
	}
	return accounts, nil
}

// ReadAccounts parses the consumer CSV. Blank account rows are skipped and a
// missing Report_ID defaults to accountId_meterSrno.
func ReadAccounts(r io.Reader) ([]Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty consumers file")
		}
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	accCol, ok := idx["accountId"]
	if !ok {
		return nil, errors.New("consumers file is missing the accountId column")
	}
	meterCol, hasMeter := idx["meterSrno"]
	reportCol, hasReport := idx["Report_ID"]

	field := func(rec []string, i int, present bool) string {
		if !present || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []Account
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		a := Account{
			AccountID:   field(rec, accCol, true),
			MeterNumber: field(rec, meterCol, hasMeter),
			ReportID:    field(rec, reportCol, hasReport),
		}
		if a.AccountID == "" {
			continue
		}
		if a.ReportID == "" {
			a.ReportID = a.AccountID + "_" + a.MeterNumber
		}
		out = append(out, a)
	}
	return out, nil
}

// GetDefaultAccountsPath returns the consumer list path.
func GetDefaultAccountsPath() string {
	if path := os.Getenv("CONSUMERS_FILE"); path != "" {
		return path
	}
	return "./Consumer_details.csv"
}
