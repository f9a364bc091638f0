package handlers

import (
	"net/http"

	"prepaid-reconcile/internal/api/models"
	"prepaid-reconcile/internal/data"
	"prepaid-reconcile/internal/ledger"

	"github.com/gin-gonic/gin"
)

// ComputeHandler bills a cycle from posted readings
type ComputeHandler struct {
	tariffDir string
}

func NewComputeHandler(tariffDir string) *ComputeHandler {
	return &ComputeHandler{tariffDir: tariffDir}
}

// Compute handles POST /api/v1/compute
// ?format=csv streams the ledger as CSV instead of JSON.
func (h *ComputeHandler) Compute(c *gin.Context) {
	var req models.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	cfg, err := resolveTariff(h.tariffDir, req.TariffSelector)
	if err != nil {
		respondErr(c, err)
		return
	}

	records, err := data.DecodeReadings(req.Readings)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_READINGS", err.Error(), nil)
		return
	}

	result, err := ledger.New().Run(cfg, records)
	if err != nil {
		respondErr(c, err)
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="`+cfg.Name+`_ledger.csv"`)
		c.Status(http.StatusOK)
		if err := ledger.WriteLedger(c.Writer, result.Ledger); err != nil {
			c.Error(err)
		}
		return
	}

	c.JSON(http.StatusOK, models.ComputeResponse{
		Tariff:         cfg.Name,
		Scheme:         string(cfg.Scheme),
		Days:           len(result.Ledger),
		ClosingBalance: result.ClosingBalance,
		Transition:     result.Transition,
		Ledger:         result.Ledger,
	})
}
