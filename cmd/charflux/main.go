// charflux runs the charcoal-record pipeline: per-site derivation of
// deposition quantities from a source database, then binning onto a
// common age grid.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charflux/charflux/internal/database"
	"github.com/charflux/charflux/internal/log"
	"github.com/charflux/charflux/internal/pipeline"
	"github.com/charflux/charflux/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to YAML configuration file")
	stage := flag.String("stage", "all", "Pipeline stage to run: 'derive', 'bin', or 'all'")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("charflux %s\n", version)
		os.Exit(0)
	}

	// Load configuration
	cfgData, err := loadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	if err := log.InitWithFile(*debug || cfgData.Logging.Debug, cfgData.Logging.File); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	source, err := openSource(cfgData, *stage)
	if err != nil {
		log.Errorf("Failed to open source database: %v", err)
		os.Exit(1)
	}
	if source != nil {
		defer source.Close()
	}

	p := pipeline.New(cfgData, source, log.GetSugaredLogger())
	if err := p.Run(context.Background(), *stage); err != nil {
		log.Errorf("Pipeline error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cfgFile string) (*config.Data, error) {
	filename, _ := filepath.Abs(cfgFile)
	provider := config.NewYAMLProvider(filename)
	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}
	return cfgData, nil
}

// openSource connects to the configured source database. The binning
// stage runs entirely from the on-disk hand-off and needs no source.
func openSource(cfgData *config.Data, stage string) (database.SampleSource, error) {
	if stage == "bin" {
		return nil, nil
	}
	switch cfgData.Source.Backend {
	case "sqlite":
		return database.NewSQLiteSource(cfgData.Source.Path, cfgData.Source.Sentinel)
	case "postgres":
		return database.NewPostgresSource(cfgData.Source.ConnectionString, cfgData.Source.Sentinel, log.GetSugaredLogger())
	}
	return nil, fmt.Errorf("unsupported source backend: %s", cfgData.Source.Backend)
}
