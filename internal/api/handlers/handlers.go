package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"prepaid-reconcile/internal/api/models"
	"prepaid-reconcile/internal/config"
	"prepaid-reconcile/internal/data"
	"prepaid-reconcile/internal/model"

	"github.com/gin-gonic/gin"
)

// ErrUnknownPreset is returned when a request names a tariff file that does not exist.
var ErrUnknownPreset = errors.New("unknown tariff preset")

// DefaultTariffDir resolves TARIFF_DIR, falling back to ./examples/tariffs.
func DefaultTariffDir() string {
	dir := os.Getenv("TARIFF_DIR")
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = filepath.Join(wd, "examples", "tariffs")
		} else {
			dir = "./examples/tariffs"
		}
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return dir
}

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// resolveTariff builds a validated tariff from a preset, an inline tariff, or both.
func resolveTariff(dir string, sel models.TariffSelector) (model.TariffConfig, error) {
	var tc config.TariffConfig
	switch {
	case sel.Preset != "":
		p, ok, err := config.FindPreset(dir, sel.Preset)
		if err != nil {
			return model.TariffConfig{}, fmt.Errorf("read tariff presets: %w", err)
		}
		if !ok {
			return model.TariffConfig{}, fmt.Errorf("%w: %s", ErrUnknownPreset, sel.Preset)
		}
		tc = p.Tariff
		if tc.Name == "" {
			tc.Name = p.ID
		}
		if sel.Tariff != nil {
			tc = config.MergeTariff(tc, *sel.Tariff)
		}
	case sel.Tariff != nil:
		tc = *sel.Tariff
	default:
		return model.TariffConfig{}, &model.ConfigurationError{Field: "tariff", Reason: "preset or tariff is required"}
	}
	tc.ApplyDefaults()
	cfg := tc.ToModel()
	if err := cfg.Validate(); err != nil {
		return model.TariffConfig{}, err
	}
	return cfg, nil
}

func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondErr maps domain errors onto HTTP errors.
func respondErr(c *gin.Context, err error) {
	var apiErr *data.LedgerAPIError
	var vErr *model.ValidationError
	var cErr *model.ConfigurationError
	switch {
	case errors.As(err, &vErr):
		details := map[string]interface{}{"field": vErr.Field}
		if vErr.Day > 0 {
			details["day"] = vErr.Day
		}
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error(), details)
	case errors.As(err, &cErr):
		respondError(c, http.StatusBadRequest, "INVALID_TARIFF", err.Error(), map[string]interface{}{"field": cErr.Field})
	case errors.Is(err, ErrUnknownPreset):
		respondError(c, http.StatusNotFound, "TARIFF_NOT_FOUND", err.Error(), nil)
	case errors.As(err, &apiErr):
		status := http.StatusBadGateway
		if apiErr.Code == "NOT_FOUND" {
			status = http.StatusNotFound
		}
		respondError(c, status, apiErr.Code, apiErr.Message, map[string]interface{}{
			"status_code": apiErr.StatusCode,
		})
	case errors.Is(err, data.ErrUnexpectedFormat):
		respondError(c, http.StatusBadGateway, "UNEXPECTED_LEDGER_FORMAT", err.Error(), nil)
	default:
		log.Printf("[API] unhandled error: %v", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}
