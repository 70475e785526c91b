// Package config defines the pipeline configuration and its providers.
package config

// Provider defines the interface for configuration data sources
type Provider interface {
	// Load complete configuration
	LoadConfig() (*Data, error)

	// Get specific configuration sections
	GetSourceConfig() (*SourceData, error)
	GetPipelineConfig() (*PipelineData, error)
	GetBinningConfig() (*BinningData, error)

	// Configuration management
	IsReadOnly() bool
	Close() error
}

// Data represents the complete configuration structure
type Data struct {
	Source   SourceData   `json:"source"`
	Pipeline PipelineData `json:"pipeline"`
	Binning  BinningData  `json:"binning,omitempty"`
	Logging  LoggingData  `json:"logging,omitempty"`
}

// SourceData holds the configuration for the source charcoal database
type SourceData struct {
	// Backend selects the database driver: "sqlite" or "postgres"
	Backend string `json:"backend"`

	// Path is the SQLite database file (sqlite backend)
	Path string `json:"path,omitempty"`

	// ConnectionString is the Postgres DSN (postgres backend)
	ConnectionString string `json:"connection_string,omitempty"`

	// Sentinel is the numeric value the database uses for missing
	// measurements. Defaults to -9999.
	Sentinel float64 `json:"sentinel,omitempty"`
}

// PipelineData holds the configuration for the per-site run
type PipelineData struct {
	// OutputDir receives the enriched CSVs, site list, binned output
	// tree, run log, and manifest
	OutputDir string `json:"output_dir"`

	// Workers bounds concurrent per-site processing; 0 means one
	// worker per CPU
	Workers int `json:"workers,omitempty"`

	// ValueColumn names the enriched column fed to the binning stage.
	// Defaults to "influx".
	ValueColumn string `json:"value_column,omitempty"`
}

// BinningData holds the bin grid and transform configuration
type BinningData struct {
	// Transform applied to each site's series before binning:
	// "none", "zscore", or "minimax"
	Transform string `json:"transform,omitempty"`

	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Step  float64 `json:"step"`
}

// LoggingData holds the logging configuration
type LoggingData struct {
	Debug bool `json:"debug,omitempty"`

	// File receives rotated JSON log lines in addition to the console
	File string `json:"file,omitempty"`
}
