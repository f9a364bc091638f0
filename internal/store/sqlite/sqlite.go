// Package sqlite keeps reconciliation runs so a report can be fetched again
// after the request that produced it. Rows are immutable once written.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"prepaid-reconcile/internal/model"
	"prepaid-reconcile/internal/reconcile"
)

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("run not found")

// Run is one stored reconciliation.
type Run struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"account_id"`
	Tariff      string            `json:"tariff"`
	CreatedAt   time.Time         `json:"created_at"`
	Verdict     reconcile.Verdict `json:"verdict"`
	Total       int               `json:"total"`
	Passed      int               `json:"passed"`
	Failed      int               `json:"failed"`
	SuccessRate float64           `json:"success_rate"`

	Report   reconcile.Report  `json:"report"`
	Computed []model.LedgerRow `json:"computed"`
	Actual   []model.LedgerRow `json:"actual,omitempty"`
}

// Outcome rebuilds the reconciliation the run was stored from.
func (r *Run) Outcome() *reconcile.Outcome {
	return &reconcile.Outcome{
		AccountID: r.AccountID,
		Tariff:    r.Tariff,
		Computed:  r.Computed,
		Actual:    r.Actual,
		Report:    r.Report,
	}
}

// Store persists runs in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	now func() time.Time
}

// New opens (and migrates) the database at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection so ":memory:" is a single database
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		tariff TEXT NOT NULL,
		created_at TEXT NOT NULL,
		verdict TEXT NOT NULL,
		total INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		success_rate REAL NOT NULL,
		report_json TEXT NOT NULL,
		computed_json TEXT NOT NULL,
		actual_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_account_created
		ON runs(account_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores o under a new id.
func (s *Store) SaveRun(ctx context.Context, o *reconcile.Outcome) (*Run, error) {
	if o == nil {
		return nil, fmt.Errorf("outcome is nil")
	}
	run := &Run{
		ID:          uuid.New().String(),
		AccountID:   o.AccountID,
		Tariff:      o.Tariff,
		CreatedAt:   s.now().UTC(),
		Verdict:     o.Report.Verdict,
		Total:       o.Report.Total,
		Passed:      o.Report.Passed,
		Failed:      o.Report.Failed,
		SuccessRate: o.Report.SuccessRate,
		Report:      o.Report,
		Computed:    o.Computed,
		Actual:      o.Actual,
	}

	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	computedJSON, err := json.Marshal(run.Computed)
	if err != nil {
		return nil, fmt.Errorf("encode computed ledger: %w", err)
	}
	var actualJSON sql.NullString
	if len(run.Actual) > 0 {
		raw, err := json.Marshal(run.Actual)
		if err != nil {
			return nil, fmt.Errorf("encode actual ledger: %w", err)
		}
		actualJSON = sql.NullString{String: string(raw), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, account_id, tariff, created_at, verdict, total, passed, failed,
			success_rate, report_json, computed_json, actual_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.AccountID, run.Tariff, run.CreatedAt.Format(time.RFC3339Nano),
		string(run.Verdict), run.Total, run.Passed, run.Failed, run.SuccessRate,
		string(reportJSON), string(computedJSON), actualJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// GetRun loads a run with its report and ledgers.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, tariff, created_at, verdict, total, passed, failed,
			success_rate, report_json, computed_json, actual_json
		FROM runs WHERE id = ?`, id)

	var (
		run                  Run
		createdAt, verdict   string
		reportJSON, computed string
		actual               sql.NullString
	)
	err := row.Scan(&run.ID, &run.AccountID, &run.Tariff, &createdAt, &verdict,
		&run.Total, &run.Passed, &run.Failed, &run.SuccessRate, &reportJSON, &computed, &actual)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	run.Verdict = reconcile.Verdict(verdict)
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("run %s created_at: %w", id, err)
	}
	if err := json.Unmarshal([]byte(reportJSON), &run.Report); err != nil {
		return nil, fmt.Errorf("run %s report: %w", id, err)
	}
	if err := json.Unmarshal([]byte(computed), &run.Computed); err != nil {
		return nil, fmt.Errorf("run %s computed ledger: %w", id, err)
	}
	if actual.Valid {
		if err := json.Unmarshal([]byte(actual.String), &run.Actual); err != nil {
			return nil, fmt.Errorf("run %s actual ledger: %w", id, err)
		}
	}
	return &run, nil
}

// ListRuns returns run headers, newest first. An empty accountID lists all accounts.
// Report and ledgers are not loaded.
func (s *Store) ListRuns(ctx context.Context, accountID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, account_id, tariff, created_at, verdict, total, passed, failed, success_rate FROM runs`
	args := []any{}
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run                Run
			createdAt, verdict string
		)
		if err := rows.Scan(&run.ID, &run.AccountID, &run.Tariff, &createdAt, &verdict,
			&run.Total, &run.Passed, &run.Failed, &run.SuccessRate); err != nil {
			return nil, err
		}
		run.Verdict = reconcile.Verdict(verdict)
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, run)
	}
	return out, rows.Err()
}
