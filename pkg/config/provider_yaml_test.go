package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	path := writeConfig(t, `
source:
  backend: sqlite
  path: /data/charcoal.db
  sentinel: -999
pipeline:
  output_dir: /data/out
  workers: 4
  value_column: concentration
binning:
  transform: zscore
  start: -60
  end: 940
  step: 20
logging:
  debug: true
  file: /var/log/charflux.log
`)
	provider := NewYAMLProvider(path)
	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Source.Backend != "sqlite" || cfg.Source.Path != "/data/charcoal.db" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Source.Sentinel != -999 {
		t.Errorf("sentinel = %v, want -999", cfg.Source.Sentinel)
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.ValueColumn != "concentration" {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Binning.Transform != "zscore" || cfg.Binning.Step != 20 {
		t.Errorf("binning = %+v", cfg.Binning)
	}
	if !cfg.Logging.Debug || cfg.Logging.File != "/var/log/charflux.log" {
		t.Errorf("logging = %+v", cfg.Logging)
	}

	if !provider.IsReadOnly() {
		t.Error("YAML provider should be read-only")
	}
}

func TestYAMLProviderDefaults(t *testing.T) {
	path := writeConfig(t, `
source:
  backend: sqlite
  path: charcoal.db
`)
	cfg, err := NewYAMLProvider(path).LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Sentinel != -9999 {
		t.Errorf("default sentinel = %v, want -9999", cfg.Source.Sentinel)
	}
	if cfg.Pipeline.OutputDir != "output" {
		t.Errorf("default output_dir = %q, want output", cfg.Pipeline.OutputDir)
	}
	if cfg.Pipeline.ValueColumn != "influx" {
		t.Errorf("default value_column = %q, want influx", cfg.Pipeline.ValueColumn)
	}
	if cfg.Binning.Transform != "none" {
		t.Errorf("default transform = %q, want none", cfg.Binning.Transform)
	}
}

func TestYAMLProviderValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "source:\n  backend: oracle\n"},
		{"sqlite without path", "source:\n  backend: sqlite\n"},
		{"postgres without dsn", "source:\n  backend: postgres\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			if _, err := NewYAMLProvider(path).LoadConfig(); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestYAMLProviderSectionGetters(t *testing.T) {
	path := writeConfig(t, `
source:
  backend: postgres
  connection_string: postgres://localhost/charcoal
binning:
  start: 0
  end: 100
  step: 10
`)
	provider := NewYAMLProvider(path)

	src, err := provider.GetSourceConfig()
	if err != nil {
		t.Fatal(err)
	}
	if src.Backend != "postgres" {
		t.Errorf("backend = %q", src.Backend)
	}

	binning, err := provider.GetBinningConfig()
	if err != nil {
		t.Fatal(err)
	}
	if binning.Step != 10 {
		t.Errorf("step = %v", binning.Step)
	}

	pipeline, err := provider.GetPipelineConfig()
	if err != nil {
		t.Fatal(err)
	}
	if pipeline.OutputDir != "output" {
		t.Errorf("output_dir = %q", pipeline.OutputDir)
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	if _, err := NewYAMLProvider("/nonexistent/config.yaml").LoadConfig(); err == nil {
		t.Error("missing config file accepted")
	}
}
