package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"prepaid-reconcile/internal/model"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTolerance      = 0.01
	DefaultTimeoutSeconds = 30
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load the tariff from a separate YAML (e.g. examples/tariffs/*.yaml).
	// If both TariffFile and Tariff are provided, Tariff overrides TariffFile.
	TariffFile string          `yaml:"tariff_file"`
	Tariff     TariffConfig    `yaml:"tariff"`
	Source     SourceConfig    `yaml:"source"`
	Reconcile  ReconcileConfig `yaml:"reconcile"`
	Report     ReportConfig    `yaml:"report"`
}

type TariffConfig struct {
	Name             string  `yaml:"name" json:"name"`
	Scheme           string  `yaml:"scheme" json:"scheme"`
	ContractedLoadKW float64 `yaml:"contracted_load_kw" json:"contracted_load_kw"`
	DaysInMonth      int     `yaml:"days_in_month" json:"days_in_month"`

	EnergyTiers []TierConfig `yaml:"energy_tiers" json:"energy_tiers"`

	FixedChargeRateLow     float64 `yaml:"fixed_charge_rate_low" json:"fixed_charge_rate_low"`
	FixedChargeRateHigh    float64 `yaml:"fixed_charge_rate_high" json:"fixed_charge_rate_high"`
	RateSwitchThresholdKWh float64 `yaml:"rate_switch_threshold_kwh" json:"rate_switch_threshold_kwh"`

	DemandBands DemandBandsConfig `yaml:"demand_bands" json:"demand_bands"`

	DutyRate       float64 `yaml:"duty_rate" json:"duty_rate"`
	RebateRate     float64 `yaml:"rebate_rate" json:"rebate_rate"`
	OpeningBalance float64 `yaml:"opening_balance" json:"opening_balance"`

	LifeLine LifeLineConfig `yaml:"life_line" json:"life_line"`
}

type TierConfig struct {
	// Exclusive upper bound; omit (0) on the last tier.
	UpToKWh float64 `yaml:"up_to_kwh" json:"up_to_kwh"`
	Rate    float64 `yaml:"rate" json:"rate"`
}

type DemandBandsConfig struct {
	MinimumPct float64 `yaml:"minimum_pct" json:"minimum_pct"`
	PenaltyPct float64 `yaml:"penalty_pct" json:"penalty_pct"`
}

type LifeLineConfig struct {
	LowECRate     float64 `yaml:"low_ec_rate" json:"low_ec_rate"`
	HighECRate    float64 `yaml:"high_ec_rate" json:"high_ec_rate"`
	SmoothingDays int     `yaml:"smoothing_days" json:"smoothing_days"`
}

// SourceConfig says where the actual ledger comes from.
type SourceConfig struct {
	LedgerAPIBase  string `yaml:"ledger_api_base"`
	AccountID      string `yaml:"account_id"`
	Start          string `yaml:"start"` // inclusive
	End            string `yaml:"end"`   // exclusive
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	LedgerFile     string `yaml:"ledger_file"`
	ConsumersFile  string `yaml:"consumers_file"`
	PostgresDSN    string `yaml:"postgres_dsn"`
}

type ReconcileConfig struct {
	// Nil means DefaultTolerance; an explicit 0 asks for exact comparison.
	Tolerance *float64 `yaml:"tolerance"`
	// Empty means every column the tariff scheme produces.
	Columns []string `yaml:"columns"`
}

// ToleranceValue returns the configured tolerance or DefaultTolerance.
func (r ReconcileConfig) ToleranceValue() float64 {
	if r.Tolerance == nil {
		return DefaultTolerance
	}
	return *r.Tolerance
}

type ReportConfig struct {
	XLSX string `yaml:"xlsx"`
	CSV  string `yaml:"csv"`
	PDF  string `yaml:"pdf"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	c.Source.LedgerFile = relativeTo(path, c.Source.LedgerFile)
	c.Source.ConsumersFile = relativeTo(path, c.Source.ConsumersFile)
	if c.TariffFile != "" {
		loaded, err := LoadTariffFile(relativeTo(path, c.TariffFile))
		if err != nil {
			return nil, err
		}
		c.Tariff = MergeTariff(loaded, c.Tariff)
	}
	return &c, nil
}

// relativeTo resolves p against the config file's directory when a file exists
// there, otherwise leaves it relative to cwd.
func relativeTo(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(filepath.Dir(configPath), p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// ApplyDefaults fills values every observed tariff shares.
func (c *Config) ApplyDefaults() {
	c.Tariff.ApplyDefaults()
	if c.Reconcile.Tolerance == nil {
		tol := DefaultTolerance
		c.Reconcile.Tolerance = &tol
	}
	if c.Source.TimeoutSeconds == 0 {
		c.Source.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Tariff.ToModel().Validate(); err != nil {
		return fmt.Errorf("tariff config invalid: %w", err)
	}
	if c.Reconcile.ToleranceValue() < 0 {
		return errors.New("reconcile.tolerance must be >= 0")
	}
	if _, err := c.Reconcile.ResolveColumns(); err != nil {
		return err
	}
	if c.Source.Start != "" || c.Source.End != "" {
		if _, _, err := c.Source.Window(); err != nil {
			return err
		}
	}
	return nil
}

func (t *TariffConfig) ApplyDefaults() {
	if t.Scheme == "" {
		t.Scheme = string(model.SchemeDemandBanded)
	}
	if t.DemandBands.MinimumPct == 0 {
		t.DemandBands.MinimumPct = 75
	}
	if t.DemandBands.PenaltyPct == 0 {
		t.DemandBands.PenaltyPct = 100
	}
	if t.Scheme == string(model.SchemeTieredLifeLine) && t.LifeLine.SmoothingDays == 0 {
		t.LifeLine.SmoothingDays = model.DefaultSmoothingDays
	}
}

func (t TariffConfig) ToModel() model.TariffConfig {
	tiers := make([]model.EnergyTier, 0, len(t.EnergyTiers))
	for _, tc := range t.EnergyTiers {
		tiers = append(tiers, model.EnergyTier{UpToKWh: tc.UpToKWh, Rate: tc.Rate})
	}
	return model.TariffConfig{
		Name:                   t.Name,
		Scheme:                 model.Scheme(t.Scheme),
		ContractedLoadKW:       t.ContractedLoadKW,
		DaysInMonth:            t.DaysInMonth,
		EnergyTiers:            tiers,
		FixedChargeRateLow:     t.FixedChargeRateLow,
		FixedChargeRateHigh:    t.FixedChargeRateHigh,
		RateSwitchThresholdKWh: t.RateSwitchThresholdKWh,
		DemandBands: model.DemandBands{
			MinimumPct: t.DemandBands.MinimumPct,
			PenaltyPct: t.DemandBands.PenaltyPct,
		},
		DutyRate:       t.DutyRate,
		RebateRate:     t.RebateRate,
		OpeningBalance: t.OpeningBalance,
		LifeLine: model.LifeLine{
			LowECRate:     t.LifeLine.LowECRate,
			HighECRate:    t.LifeLine.HighECRate,
			SmoothingDays: t.LifeLine.SmoothingDays,
		},
	}
}

// ResolveColumns maps configured column names onto ledger columns.
// A nil result means "use the scheme's columns".
func (r ReconcileConfig) ResolveColumns() ([]model.Column, error) {
	if len(r.Columns) == 0 {
		return nil, nil
	}
	out := make([]model.Column, 0, len(r.Columns))
	for _, name := range r.Columns {
		col, ok := model.ColumnByName(name)
		if !ok {
			return nil, fmt.Errorf("reconcile.columns: unknown column %q", name)
		}
		out = append(out, col)
	}
	return out, nil
}

var windowLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseTime accepts RFC3339, a zoneless timestamp or a plain date.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range windowLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// Window returns the [start, end) ledger window.
func (s SourceConfig) Window() (time.Time, time.Time, error) {
	start, err := ParseTime(s.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("source.start: %w", err)
	}
	end, err := ParseTime(s.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("source.end: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("source window is empty: %s >= %s", s.Start, s.End)
	}
	return start, end, nil
}

func (s SourceConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type tariffFileWrapper struct {
	Tariff TariffConfig `yaml:"tariff"`
}

// LoadTariffFile reads a tariff preset (a YAML document with a top-level `tariff:` key).
func LoadTariffFile(path string) (TariffConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return TariffConfig{}, err
	}
	var w tariffFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return TariffConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return w.Tariff, nil
}

// MergeTariff overlays non-zero fields from override onto base.
// Tiers are replaced as a whole when override lists any.
func MergeTariff(base, override TariffConfig) TariffConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.Scheme != "" {
		out.Scheme = override.Scheme
	}
	if override.ContractedLoadKW != 0 {
		out.ContractedLoadKW = override.ContractedLoadKW
	}
	if override.DaysInMonth != 0 {
		out.DaysInMonth = override.DaysInMonth
	}
	if len(override.EnergyTiers) > 0 {
		out.EnergyTiers = override.EnergyTiers
	}
	if override.FixedChargeRateLow != 0 {
		out.FixedChargeRateLow = override.FixedChargeRateLow
	}
	if override.FixedChargeRateHigh != 0 {
		out.FixedChargeRateHigh = override.FixedChargeRateHigh
	}
	if override.RateSwitchThresholdKWh != 0 {
		out.RateSwitchThresholdKWh = override.RateSwitchThresholdKWh
	}
	if override.DemandBands.MinimumPct != 0 {
		out.DemandBands.MinimumPct = override.DemandBands.MinimumPct
	}
	if override.DemandBands.PenaltyPct != 0 {
		out.DemandBands.PenaltyPct = override.DemandBands.PenaltyPct
	}
	if override.DutyRate != 0 {
		out.DutyRate = override.DutyRate
	}
	if override.RebateRate != 0 {
		out.RebateRate = override.RebateRate
	}
	// A zero opening balance cannot be expressed as an override; presets that need it set it directly.
	if override.OpeningBalance != 0 {
		out.OpeningBalance = override.OpeningBalance
	}
	if override.LifeLine.LowECRate != 0 {
		out.LifeLine.LowECRate = override.LifeLine.LowECRate
	}
	if override.LifeLine.HighECRate != 0 {
		out.LifeLine.HighECRate = override.LifeLine.HighECRate
	}
	if override.LifeLine.SmoothingDays != 0 {
		out.LifeLine.SmoothingDays = override.LifeLine.SmoothingDays
	}
	return out
}
