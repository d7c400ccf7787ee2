// Package config loads the YAML manifest consumed by the netimage CLI.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/netimage/pkg/decode"
	"github.com/go-drift/netimage/pkg/netimage"
)

// Manifest describes a warmup run: loader settings plus the list of
// resources to prefetch.
type Manifest struct {
	Scale           float64  `yaml:"scale,omitempty"`
	CacheBudget     int64    `yaml:"cache_budget,omitempty"`
	DiskDir         string   `yaml:"disk_dir,omitempty"`
	DiskBudget      int64    `yaml:"disk_budget,omitempty"`
	Quality         string   `yaml:"quality,omitempty"`
	MaxSourcePixels int64    `yaml:"max_source_pixels,omitempty"`
	Targets         []Target `yaml:"targets"`
}

// Target is one resource to warm, with an optional display size in
// logical units. A target without a size decodes at native resolution.
type Target struct {
	URL    string  `yaml:"url"`
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if len(m.Targets) == 0 {
		return nil, fmt.Errorf("manifest %s lists no targets", path)
	}
	for i, tgt := range m.Targets {
		if strings.TrimSpace(tgt.URL) == "" {
			return nil, fmt.Errorf("manifest target %d has no url", i)
		}
	}
	return &m, nil
}

// Options converts the manifest's loader settings.
func (m *Manifest) Options() (netimage.Options, error) {
	quality, err := ParseQuality(m.Quality)
	if err != nil {
		return netimage.Options{}, err
	}
	return netimage.Options{
		CacheBudget:     m.CacheBudget,
		Scale:           m.Scale,
		Quality:         quality,
		MaxSourcePixels: m.MaxSourcePixels,
		DiskDir:         m.DiskDir,
		DiskBudget:      m.DiskBudget,
	}, nil
}

// ParseQuality maps a manifest quality name to a downsampling kernel.
// The empty string means QualityHigh.
func ParseQuality(name string) (decode.Quality, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "high":
		return decode.QualityHigh, nil
	case "medium":
		return decode.QualityMedium, nil
	case "low":
		return decode.QualityLow, nil
	default:
		return 0, fmt.Errorf("unknown quality %q (want high, medium or low)", name)
	}
}
