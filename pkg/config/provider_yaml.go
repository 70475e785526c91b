package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements Provider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *Data
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*Data, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Source   sourceYAML   `yaml:"source"`
		Pipeline pipelineYAML `yaml:"pipeline"`
		Binning  binningYAML  `yaml:"binning,omitempty"`
		Logging  loggingYAML  `yaml:"logging,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &Data{
		Source: SourceData{
			Backend:          yamlConfig.Source.Backend,
			Path:             yamlConfig.Source.Path,
			ConnectionString: yamlConfig.Source.ConnectionString,
			Sentinel:         yamlConfig.Source.Sentinel,
		},
		Pipeline: PipelineData{
			OutputDir:   yamlConfig.Pipeline.OutputDir,
			Workers:     yamlConfig.Pipeline.Workers,
			ValueColumn: yamlConfig.Pipeline.ValueColumn,
		},
		Binning: BinningData{
			Transform: yamlConfig.Binning.Transform,
			Start:     yamlConfig.Binning.Start,
			End:       yamlConfig.Binning.End,
			Step:      yamlConfig.Binning.Step,
		},
		Logging: LoggingData{
			Debug: yamlConfig.Logging.Debug,
			File:  yamlConfig.Logging.File,
		},
	}

	applyDefaults(config)
	if err := validate(config); err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// GetSourceConfig returns the source database section
func (y *YAMLProvider) GetSourceConfig() (*SourceData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return &y.config.Source, nil
}

// GetPipelineConfig returns the pipeline section
func (y *YAMLProvider) GetPipelineConfig() (*PipelineData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return &y.config.Pipeline, nil
}

// GetBinningConfig returns the binning section
func (y *YAMLProvider) GetBinningConfig() (*BinningData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return &y.config.Binning, nil
}

// IsReadOnly returns true: YAML files are not modified by the pipeline
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML providers
func (y *YAMLProvider) Close() error {
	return nil
}

func (y *YAMLProvider) ensureLoaded() error {
	if y.config != nil {
		return nil
	}
	_, err := y.LoadConfig()
	return err
}

func applyDefaults(c *Data) {
	if c.Source.Sentinel == 0 {
		c.Source.Sentinel = -9999
	}
	if c.Pipeline.OutputDir == "" {
		c.Pipeline.OutputDir = "output"
	}
	if c.Pipeline.ValueColumn == "" {
		c.Pipeline.ValueColumn = "influx"
	}
	if c.Binning.Transform == "" {
		c.Binning.Transform = "none"
	}
}

func validate(c *Data) error {
	switch c.Source.Backend {
	case "sqlite":
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for the sqlite backend")
		}
	case "postgres":
		if c.Source.ConnectionString == "" {
			return fmt.Errorf("source.connection_string is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported source backend: %q. Use 'sqlite' or 'postgres'", c.Source.Backend)
	}
	return nil
}

// YAML-tagged mirror structs

type sourceYAML struct {
	Backend          string  `yaml:"backend"`
	Path             string  `yaml:"path,omitempty"`
	ConnectionString string  `yaml:"connection_string,omitempty"`
	Sentinel         float64 `yaml:"sentinel,omitempty"`
}

type pipelineYAML struct {
	OutputDir   string `yaml:"output_dir"`
	Workers     int    `yaml:"workers,omitempty"`
	ValueColumn string `yaml:"value_column,omitempty"`
}

type binningYAML struct {
	Transform string  `yaml:"transform,omitempty"`
	Start     float64 `yaml:"start"`
	End       float64 `yaml:"end"`
	Step      float64 `yaml:"step"`
}

type loggingYAML struct {
	Debug bool   `yaml:"debug,omitempty"`
	File  string `yaml:"file,omitempty"`
}
