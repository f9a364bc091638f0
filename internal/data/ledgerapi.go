package data

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"prepaid-reconcile/internal/model"
)

// DefaultLedgerAPIBase is the staging billing engine.
const DefaultLedgerAPIBase = "https://engine-web.stage.gomatimvvnl.in"

// LedgerClient reads daily prepaid ledgers from the billing engine and
// triggers its ledger jobs.
type LedgerClient struct {
	BaseURL string
	Client  *http.Client
	// Cache is optional; nil disables caching.
	Cache *ResponseCache
}

// NewLedgerClient creates a client. If baseURL is empty, DefaultLedgerAPIBase is used.
func NewLedgerClient(baseURL string, timeout time.Duration) *LedgerClient {
	if baseURL == "" {
		baseURL = DefaultLedgerAPIBase
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LedgerClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		Cache:   GetCache(),
	}
}

// LedgerAPIError represents a non-200 answer from the billing engine.
type LedgerAPIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *LedgerAPIError) Error() string {
	return e.Message
}

// FetchLedger returns the account's ledger rows with start_date_time in [start, end),
// ordered by date.
func (c *LedgerClient) FetchLedger(ctx context.Context, accountID string, start, end time.Time) ([]model.LedgerRow, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account_id is required")
	}
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("start and end are required")
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("start must be before end")
	}

	all, err := c.fetchAll(ctx, accountID)
	if err != nil {
		return nil, err
	}
	rows := FilterWindow(all, start.UTC(), end.UTC())
	log.Printf("[Ledger] Fetched %d records for account %s (%s to %s)",
		len(rows), accountID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	return rows, nil
}

func (c *LedgerClient) fetchAll(ctx context.Context, accountID string) ([]model.LedgerRow, error) {
	cacheKey := GenerateCacheKey(c.BaseURL, accountID)
	if cached, found := c.Cache.Get(cacheKey); found {
		log.Printf("[Ledger] Cache hit: %d rows (account=%s)", len(cached), accountID)
		return cached, nil
	}

	u, err := url.JoinPath(c.BaseURL, "daily_prepaid_ledger", url.PathEscape(accountID), "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	rows, err := DecodeLedger(body)
	if err != nil {
		log.Printf("[Ledger] Error decoding response: %v (account=%s)", err, accountID)
		return nil, fmt.Errorf("failed to decode ledger for %s: %w", accountID, err)
	}

	c.Cache.Set(cacheKey, rows)
	return rows, nil
}

// TriggerIncremental runs the billing engine's incremental task.
func (c *LedgerClient) TriggerIncremental(ctx context.Context) error {
	u, err := url.JoinPath(c.BaseURL, "trigger_task", "incremental_task", "/")
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	_, err = c.get(ctx, u)
	return err
}

// TriggerDailyLedger asks the billing engine to build one account's ledger for day.
func (c *LedgerClient) TriggerDailyLedger(ctx context.Context, accountID string, day time.Time) error {
	stamp := day.Format("2006-01-02") + " 00:00:00"
	u, err := url.JoinPath(c.BaseURL, "trigger_task", "daily_ledger_task", url.PathEscape(stamp))
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	q := url.Values{}
	q.Set("wallet_balance_sync_flag", "False")
	q.Set("account_id", accountID)
	_, err = c.get(ctx, u+"?"+q.Encode())
	return err
}

func (c *LedgerClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	log.Printf("[Ledger] Request: GET %s", req.URL.Path)
	started := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(started)
	if err != nil {
		log.Printf("[Ledger] Request failed: %v (duration: %v)", err, duration)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	log.Printf("[Ledger] Response: %d (duration: %v)", resp.StatusCode, duration)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, &LedgerAPIError{
			StatusCode: resp.StatusCode,
			Code:       "NOT_FOUND",
			Message:    fmt.Sprintf("ledger endpoint not found: %s", req.URL.Path),
		}
	case resp.StatusCode >= 500:
		return nil, &LedgerAPIError{
			StatusCode: resp.StatusCode,
			Code:       "UPSTREAM_ERROR",
			Message:    fmt.Sprintf("billing engine returned status %d", resp.StatusCode),
		}
	default:
		return nil, &LedgerAPIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}
}
