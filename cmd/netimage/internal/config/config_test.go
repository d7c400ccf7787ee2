package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-drift/netimage/pkg/decode"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
scale: 2
cache_budget: 1048576
disk_dir: /var/cache/netimage
disk_budget: 2097152
quality: medium
targets:
  - url: https://cdn.example.com/p/1.jpg
    width: 56
    height: 56
  - url: https://cdn.example.com/p/2.jpg
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Scale != 2 {
		t.Errorf("Scale = %v, want 2", m.Scale)
	}
	if m.CacheBudget != 1048576 {
		t.Errorf("CacheBudget = %d, want 1048576", m.CacheBudget)
	}
	if m.DiskDir != "/var/cache/netimage" {
		t.Errorf("DiskDir = %q", m.DiskDir)
	}
	if len(m.Targets) != 2 {
		t.Fatalf("Targets = %d, want 2", len(m.Targets))
	}
	if m.Targets[0].Width != 56 || m.Targets[0].Height != 56 {
		t.Errorf("target 0 size = %vx%v, want 56x56", m.Targets[0].Width, m.Targets[0].Height)
	}
	if m.Targets[1].Width != 0 {
		t.Errorf("target 1 width = %v, want 0 (native)", m.Targets[1].Width)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load accepted a missing manifest")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeManifest(t, "targets: [url: {")
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed yaml")
	}
}

func TestLoadRequiresTargets(t *testing.T) {
	path := writeManifest(t, "scale: 2\n")
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a manifest with no targets")
	}
}

func TestLoadRequiresTargetURL(t *testing.T) {
	path := writeManifest(t, `
targets:
  - width: 10
    height: 10
`)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a target with no url")
	}
}

func TestManifestOptions(t *testing.T) {
	m := &Manifest{
		Scale:       3,
		CacheBudget: 4096,
		DiskDir:     "/tmp/x",
		DiskBudget:  8192,
		Quality:     "low",
	}
	opts, err := m.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if opts.Scale != 3 || opts.CacheBudget != 4096 || opts.DiskDir != "/tmp/x" || opts.DiskBudget != 8192 {
		t.Errorf("options = %+v, want manifest values carried over", opts)
	}
	if opts.Quality != decode.QualityLow {
		t.Errorf("Quality = %v, want low", opts.Quality)
	}
}

func TestManifestOptionsBadQuality(t *testing.T) {
	m := &Manifest{Quality: "ultra"}
	if _, err := m.Options(); err == nil {
		t.Error("Options accepted an unknown quality")
	}
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in      string
		want    decode.Quality
		wantErr bool
	}{
		{"", decode.QualityHigh, false},
		{"high", decode.QualityHigh, false},
		{"HIGH", decode.QualityHigh, false},
		{" medium ", decode.QualityMedium, false},
		{"low", decode.QualityLow, false},
		{"ultra", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseQuality(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseQuality(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseQuality(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
