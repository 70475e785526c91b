package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charflux/charflux/pkg/config"
)

// Manifest records what a run did: its identity, the configuration it
// ran under, and per-stage counters. It is written as JSON into the
// output directory so a results server can describe the run later.
type Manifest struct {
	RunID     string       `json:"run_id"`
	StartedAt time.Time    `json:"started_at"`
	Config    *config.Data `json:"config"`
	Derive    StageStats   `json:"derive"`
	Bin       StageStats   `json:"bin"`
}

// StageStats counts one stage's outcomes. Rows means enriched samples
// for the derivation stage and occupied bins for the binning stage.
type StageStats struct {
	mu        sync.Mutex
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Rows      int `json:"rows"`
}

func newManifest(runID uuid.UUID, cfg *config.Data) *Manifest {
	return &Manifest{
		RunID:     runID.String(),
		StartedAt: time.Now().UTC(),
		Config:    cfg,
	}
}

func (s *StageStats) done(rows int) {
	s.mu.Lock()
	s.Processed++
	s.Rows += rows
	s.mu.Unlock()
}

func (s *StageStats) skip() {
	s.mu.Lock()
	s.Skipped++
	s.mu.Unlock()
}

// Write serializes the manifest to manifest.json in the output
// directory.
func (m *Manifest) Write(outputDir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	path := filepath.Join(outputDir, "manifest.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
