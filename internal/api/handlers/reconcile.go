package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"prepaid-reconcile/internal/api/models"
	"prepaid-reconcile/internal/config"
	"prepaid-reconcile/internal/data"
	"prepaid-reconcile/internal/ledger"
	"prepaid-reconcile/internal/metrics"
	"prepaid-reconcile/internal/model"
	"prepaid-reconcile/internal/reconcile"
	"prepaid-reconcile/internal/report"
	"prepaid-reconcile/internal/store/sqlite"

	"github.com/gin-gonic/gin"
)

// LedgerFetcher returns an account's upstream ledger for [start, end).
type LedgerFetcher interface {
	FetchLedger(ctx context.Context, accountID string, start, end time.Time) ([]model.LedgerRow, error)
}

// RunStore keeps finished reconciliations.
type RunStore interface {
	SaveRun(ctx context.Context, o *reconcile.Outcome) (*sqlite.Run, error)
	GetRun(ctx context.Context, id string) (*sqlite.Run, error)
	ListRuns(ctx context.Context, accountID string, limit int) ([]sqlite.Run, error)
}

// ReconcileHandler handles reconciliation requests
type ReconcileHandler struct {
	tariffDir string
	ledgers   LedgerFetcher
	runs      RunStore
	metrics   *metrics.Metrics
}

// NewReconcileHandler creates a reconcile handler. ledgers, runs and m may be nil:
// without ledgers only inline ledgers are accepted, without runs nothing is stored.
func NewReconcileHandler(tariffDir string, ledgers LedgerFetcher, runs RunStore, m *metrics.Metrics) *ReconcileHandler {
	return &ReconcileHandler{tariffDir: tariffDir, ledgers: ledgers, runs: runs, metrics: m}
}

// Reconcile handles POST /api/v1/reconcile
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	var req models.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	cfg, err := resolveTariff(h.tariffDir, req.TariffSelector)
	if err != nil {
		respondErr(c, err)
		return
	}

	cols, err := config.ReconcileConfig{Columns: req.Columns}.ResolveColumns()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_COLUMNS", err.Error(), nil)
		return
	}

	actual, ok := h.actualLedger(c, req)
	if !ok {
		return
	}

	tolerance := reconcile.DefaultTolerance
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}

	started := time.Now()
	out, err := reconcile.Run(cfg, actual, reconcile.Options{Tolerance: tolerance, Columns: cols})
	h.metrics.ObserveRun(out, err, time.Since(started))
	if err != nil {
		respondErr(c, err)
		return
	}
	if out.AccountID == "" {
		out.AccountID = req.AccountID
	}

	resp := buildReconcileResponse(out, req.IncludeRows)
	if h.runs != nil {
		run, err := h.runs.SaveRun(c.Request.Context(), out)
		if err != nil {
			log.Printf("[Reconcile] failed to store run for %s: %v", out.AccountID, err)
		} else {
			resp.ID = run.ID
			resp.CreatedAt = run.CreatedAt
		}
	}

	log.Printf("[Reconcile] %s %s: %s (%d/%d rows)", out.AccountID, out.Tariff, out.Report.Verdict, out.Report.Passed, out.Report.Total)
	c.JSON(http.StatusOK, resp)
}

// actualLedger decodes the inline ledger or fetches it from the billing engine.
// It writes the error response itself and reports false on failure.
func (h *ReconcileHandler) actualLedger(c *gin.Context, req models.ReconcileRequest) ([]model.LedgerRow, bool) {
	var start, end time.Time
	if req.Start != "" || req.End != "" {
		var err error
		start, end, err = config.SourceConfig{Start: req.Start, End: req.End}.Window()
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_DATE", err.Error(), nil)
			return nil, false
		}
	}

	if len(req.Ledger) > 0 {
		rows, err := data.DecodeLedger(req.Ledger)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_LEDGER", err.Error(), nil)
			return nil, false
		}
		if !start.IsZero() {
			rows = data.FilterWindow(rows, start, end)
		} else {
			for i := range rows {
				rows[i].Day = i + 1
			}
		}
		return rows, true
	}

	if req.AccountID == "" || start.IsZero() {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "ledger, or account_id with start and end, is required", nil)
		return nil, false
	}
	if h.ledgers == nil {
		respondError(c, http.StatusServiceUnavailable, "LEDGER_SOURCE_UNAVAILABLE", "no ledger API configured", nil)
		return nil, false
	}
	rows, err := h.ledgers.FetchLedger(c.Request.Context(), req.AccountID, start, end)
	if err != nil {
		respondErr(c, err)
		return nil, false
	}
	return rows, true
}

// GetRun handles GET /api/v1/reconcile/:id
func (h *ReconcileHandler) GetRun(c *gin.Context) {
	run, ok := h.loadRun(c)
	if !ok {
		return
	}
	resp := buildReconcileResponse(run.Outcome(), true)
	resp.ID = run.ID
	resp.CreatedAt = run.CreatedAt
	c.JSON(http.StatusOK, resp)
}

// ListRuns handles GET /api/v1/reconcile
func (h *ReconcileHandler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		respondError(c, http.StatusServiceUnavailable, "RUN_STORE_DISABLED", "run storage is not configured", nil)
		return
	}
	var q models.RunsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	runs, err := h.runs.ListRuns(c.Request.Context(), q.AccountID, q.Limit)
	if err != nil {
		respondErr(c, err)
		return
	}

	out := make([]models.ReconcileResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, models.ReconcileResponse{
			ID:          r.ID,
			AccountID:   r.AccountID,
			Tariff:      r.Tariff,
			CreatedAt:   r.CreatedAt,
			Verdict:     r.Verdict,
			Total:       r.Total,
			Passed:      r.Passed,
			Failed:      r.Failed,
			SuccessRate: r.SuccessRate,
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

// DownloadReport handles GET /api/v1/reconcile/:id/report/:format (xlsx, pdf, csv)
func (h *ReconcileHandler) DownloadReport(c *gin.Context) {
	run, ok := h.loadRun(c)
	if !ok {
		return
	}
	o := run.Outcome()
	name := run.AccountID + "_" + run.Tariff

	switch c.Param("format") {
	case "xlsx":
		raw, err := report.BuildComparisonXLSX(o)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", raw)
	case "pdf":
		raw, err := report.BuildSummaryPDF(o, run.CreatedAt)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+name+`.pdf"`)
		c.Data(http.StatusOK, "application/pdf", raw)
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="`+name+`.csv"`)
		c.Status(http.StatusOK)
		if err := ledger.WriteLedger(c.Writer, o.Computed); err != nil {
			c.Error(err)
		}
	default:
		respondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be xlsx, pdf or csv", nil)
	}
}

func (h *ReconcileHandler) loadRun(c *gin.Context) (*sqlite.Run, bool) {
	if h.runs == nil {
		respondError(c, http.StatusServiceUnavailable, "RUN_STORE_DISABLED", "run storage is not configured", nil)
		return nil, false
	}
	run, err := h.runs.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sqlite.ErrNotFound) {
		respondError(c, http.StatusNotFound, "RUN_NOT_FOUND", err.Error(), map[string]interface{}{"id": c.Param("id")})
		return nil, false
	}
	if err != nil {
		respondErr(c, err)
		return nil, false
	}
	return run, true
}

func buildReconcileResponse(o *reconcile.Outcome, includeRows bool) models.ReconcileResponse {
	rep := o.Report
	resp := models.ReconcileResponse{
		AccountID:         o.AccountID,
		Tariff:            o.Tariff,
		Verdict:           rep.Verdict,
		Total:             rep.Total,
		Passed:            rep.Passed,
		Failed:            rep.Failed,
		SuccessRate:       rep.SuccessRate,
		Tolerance:         rep.Tolerance,
		Remarks:           rep.Remarks,
		MismatchedColumns: rep.MismatchedColumns,
	}
	if includeRows {
		resp.Rows = rep.Rows
	}
	return resp
}
