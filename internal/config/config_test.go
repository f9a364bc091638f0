package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepaid-reconcile/internal/model"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const tieredPreset = `tariff:
  name: formula_103
  scheme: tiered_lifeline
  contracted_load_kw: 1
  days_in_month: 31
  energy_tiers:
    - up_to_kwh: 100
      rate: 3
    - rate: 5.5
  fixed_charge_rate_low: 50
  fixed_charge_rate_high: 110
  rate_switch_threshold_kwh: 100
  duty_rate: 0.05
  rebate_rate: 0.02
  life_line:
    low_ec_rate: 3
    high_ec_rate: 5.5
`

func TestLoad_TariffFileRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tariffs/formula_103.yaml", tieredPreset)
	path := writeFile(t, dir, "config.yaml", `tariff_file: tariffs/formula_103.yaml
tariff:
  opening_balance: 250
source:
  account_id: "2222550013"
  start: "2025-10-01T00:00:00"
  end: "2025-11-01"
`)

	c, err := Load(path)
	require.NoError(t, err)

	m := c.Tariff.ToModel()
	assert.Equal(t, model.SchemeTieredLifeLine, m.Scheme)
	assert.Equal(t, 250.0, m.OpeningBalance)
	assert.Equal(t, 110.0, m.FixedChargeRateHigh)
	assert.Equal(t, model.DemandBands{MinimumPct: 75, PenaltyPct: 100}, m.DemandBands)
	assert.Equal(t, model.DefaultSmoothingDays, m.LifeLine.SmoothingDays)
	assert.Equal(t, DefaultTolerance, c.Reconcile.ToleranceValue())
	assert.Equal(t, 30*time.Second, c.Source.Timeout())

	start, end, err := c.Source.Window()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestLoad_SourceFilesRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t.yaml", tieredPreset)
	writeFile(t, dir, "Consumer_details.csv", "accountId,meterSrno,Report_ID\n")
	path := writeFile(t, dir, "config.yaml", `tariff_file: t.yaml
source:
  consumers_file: Consumer_details.csv
  ledger_file: missing.json
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Consumer_details.csv"), c.Source.ConsumersFile)
	assert.Equal(t, "missing.json", c.Source.LedgerFile)
}

func TestLoad_RejectsInvalidTariff(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `tariff:
  scheme: demand_banded
  contracted_load_kw: 1
  days_in_month: 0
  energy_tiers:
    - rate: 3
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidTariff)

	c, err := LoadUnchecked(path)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Tariff.DaysInMonth)
}

func TestLoad_UnknownColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t.yaml", tieredPreset)
	path := writeFile(t, dir, "config.yaml", `tariff_file: t.yaml
reconcile:
  columns: [closing_balance, soc_end]
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, `unknown column "soc_end"`)
}

func TestLoad_ExplicitZeroTolerance(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t.yaml", tieredPreset)
	path := writeFile(t, dir, "config.yaml", `tariff_file: t.yaml
reconcile:
  tolerance: 0
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, c.Reconcile.Tolerance)
	assert.Zero(t, c.Reconcile.ToleranceValue())

	path = writeFile(t, dir, "negative.yaml", `tariff_file: t.yaml
reconcile:
  tolerance: -0.5
`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "reconcile.tolerance")
}

func TestMergeTariff(t *testing.T) {
	base := TariffConfig{
		Name:               "base",
		Scheme:             "flat",
		ContractedLoadKW:   1,
		EnergyTiers:        []TierConfig{{Rate: 3}},
		FixedChargeRateLow: 50,
		DutyRate:           0.05,
	}
	out := MergeTariff(base, TariffConfig{
		ContractedLoadKW: 2,
		EnergyTiers:      []TierConfig{{UpToKWh: 100, Rate: 3}, {Rate: 4}},
	})
	assert.Equal(t, "base", out.Name)
	assert.Equal(t, 2.0, out.ContractedLoadKW)
	assert.Len(t, out.EnergyTiers, 2)
	assert.Equal(t, 0.05, out.DutyRate)
}

func TestSourceWindow_Empty(t *testing.T) {
	_, _, err := SourceConfig{Start: "2025-10-02", End: "2025-10-01"}.Window()
	assert.Error(t, err)
	_, _, err = SourceConfig{Start: "yesterday", End: "2025-10-01"}.Window()
	assert.ErrorContains(t, err, "source.start")
}

func TestListPresets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "formula_103.yaml", tieredPreset)
	writeFile(t, dir, "formula_101.yml", "tariff:\n  name: formula_101\n  scheme: flat\n")
	writeFile(t, dir, "broken.yaml", "tariff: [\n")
	writeFile(t, dir, "notes.txt", "ignore me")

	presets, err := ListPresets(dir)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "formula_101", presets[0].ID)
	assert.Equal(t, "formula_103", presets[1].ID)
	assert.Equal(t, 75.0, presets[0].Tariff.DemandBands.MinimumPct)

	p, ok, err := FindPreset(dir, "formula_103")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tiered_lifeline", p.Tariff.Scheme)
}

func TestShippedPresetsAreValid(t *testing.T) {
	presets, err := ListPresets(filepath.Join("..", "..", "examples", "tariffs"))
	require.NoError(t, err)
	require.Len(t, presets, 3)
	for _, p := range presets {
		assert.NoError(t, p.Tariff.ToModel().Validate(), p.ID)
	}
}
