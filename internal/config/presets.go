package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Preset is a named tariff file.
type Preset struct {
	ID     string       `json:"id"`
	File   string       `json:"file"`
	Tariff TariffConfig `json:"tariff"`
}

// ListPresets loads every *.yaml / *.yml tariff in dir, sorted by ID.
// Files that fail to parse are skipped.
func ListPresets(dir string) ([]Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Preset
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		t, err := LoadTariffFile(path)
		if err != nil {
			continue
		}
		t.ApplyDefaults()
		out = append(out, Preset{ID: strings.TrimSuffix(e.Name(), ext), File: path, Tariff: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindPreset returns the preset with the given ID.
func FindPreset(dir, id string) (Preset, bool, error) {
	presets, err := ListPresets(dir)
	if err != nil {
		return Preset{}, false, err
	}
	for _, p := range presets {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Preset{}, false, nil
}
