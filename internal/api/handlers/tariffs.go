package handlers

import (
	"log"
	"net/http"
	"os"

	"prepaid-reconcile/internal/api/models"
	"prepaid-reconcile/internal/config"
	"prepaid-reconcile/internal/model"

	"github.com/gin-gonic/gin"
)

// TariffHandler serves the tariff presets in a directory
type TariffHandler struct {
	tariffDir string
}

func NewTariffHandler(tariffDir string) *TariffHandler {
	log.Printf("TariffHandler: Using tariff directory: %s", tariffDir)
	return &TariffHandler{tariffDir: tariffDir}
}

// GetTariffDir returns the preset directory (for debugging)
func (h *TariffHandler) GetTariffDir() string {
	return h.tariffDir
}

// ListTariffs handles GET /api/v1/tariffs
func (h *TariffHandler) ListTariffs(c *gin.Context) {
	tariffs := []models.TariffInfo{}

	presets, err := config.ListPresets(h.tariffDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("TariffHandler: Failed to read tariff directory %s: %v", h.tariffDir, err)
		}
		c.JSON(http.StatusOK, gin.H{"tariffs": tariffs})
		return
	}

	for _, p := range presets {
		name := p.Tariff.Name
		if name == "" {
			name = p.ID
		}
		tariffs = append(tariffs, models.TariffInfo{
			ID:     p.ID,
			Name:   name,
			File:   p.File,
			Scheme: p.Tariff.Scheme,
			Specs: models.TariffSpecs{
				ContractedLoadKW: p.Tariff.ContractedLoadKW,
				DaysInMonth:      p.Tariff.DaysInMonth,
				Tiers:            len(p.Tariff.EnergyTiers),
				OpeningBalance:   p.Tariff.OpeningBalance,
			},
		})
	}
	c.JSON(http.StatusOK, gin.H{"tariffs": tariffs})
}

// GetTariff handles GET /api/v1/tariffs/:id
func (h *TariffHandler) GetTariff(c *gin.Context) {
	id := c.Param("id")
	p, ok, err := config.FindPreset(h.tariffDir, id)
	if err != nil && !os.IsNotExist(err) {
		respondErr(c, err)
		return
	}
	if !ok {
		respondError(c, http.StatusNotFound, "TARIFF_NOT_FOUND", "unknown tariff preset: "+id, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": p.ID, "file": p.File, "tariff": p.Tariff})
}

// ListColumns handles GET /api/v1/columns
func ListColumns(c *gin.Context) {
	schemes := map[string][]string{}
	for _, s := range []model.Scheme{model.SchemeFlat, model.SchemeDemandBanded, model.SchemeTieredLifeLine} {
		schemes[string(s)] = model.ColumnNames(model.ColumnsFor(s))
	}
	c.JSON(http.StatusOK, models.ColumnsResponse{
		Columns: model.ColumnNames(model.LedgerColumns),
		Schemes: schemes,
	})
}
