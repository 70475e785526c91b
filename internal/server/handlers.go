package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/charflux/charflux/internal/pipeline"
	"github.com/charflux/charflux/internal/sitefile"
	"github.com/charflux/charflux/internal/types"
	"github.com/charflux/charflux/pkg/responseformat"
)

// Handlers contains the HTTP request handlers for the results API.
type Handlers struct {
	dataDir   string
	formatter *responseformat.Formatter
	logger    *zap.SugaredLogger

	manifestOnce sync.Once
	manifest     *pipeline.Manifest
	manifestErr  error
}

// NewHandlers creates handlers over a run data directory
func NewHandlers(dataDir string, formatter *responseformat.Formatter, logger *zap.SugaredLogger) *Handlers {
	return &Handlers{
		dataDir:   dataDir,
		formatter: formatter,
		logger:    logger,
	}
}

// loadManifest reads the run manifest once; every endpoint that needs
// run parameters (sentinel, bin grid, transform) goes through it.
func (h *Handlers) loadManifest() (*pipeline.Manifest, error) {
	h.manifestOnce.Do(func() {
		data, err := os.ReadFile(filepath.Join(h.dataDir, "manifest.json"))
		if err != nil {
			h.manifestErr = fmt.Errorf("reading run manifest: %w", err)
			return
		}
		var m pipeline.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			h.manifestErr = fmt.Errorf("decoding run manifest: %w", err)
			return
		}
		h.manifest = &m
	})
	return h.manifest, h.manifestErr
}

// GetHealth reports server liveness
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, map[string]string{"status": "ok"})
}

// GetManifest serves the run manifest
func (h *Handlers) GetManifest(w http.ResponseWriter, req *http.Request) {
	m, err := h.loadManifest()
	if err != nil {
		h.fail(w, req, http.StatusNotFound, err)
		return
	}
	h.write(w, req, m)
}

// SiteResponse is one site list entry as served by the API.
type SiteResponse struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	NSamp int    `json:"nsamp"`
}

// GetSites serves the run's site list
func (h *Handlers) GetSites(w http.ResponseWriter, req *http.Request) {
	entries, err := sitefile.ReadSiteList(filepath.Join(h.dataDir, "sites.csv"))
	if err != nil {
		h.fail(w, req, http.StatusNotFound, fmt.Errorf("reading site list: %w", err))
		return
	}
	sites := make([]SiteResponse, len(entries))
	for i, e := range entries {
		sites[i] = SiteResponse{ID: e.Site.ID, Name: e.Site.Name, NSamp: e.NSamp}
	}
	h.write(w, req, sites)
}

// EnrichedResponse is one enriched sample as served by the API.
// Missing values serialize as null, never as the sentinel.
type EnrichedResponse struct {
	SampleIndex      int      `json:"sample_index"`
	SampleID         string   `json:"sample_id"`
	Depth            *float64 `json:"depth"`
	EstAge           *float64 `json:"est_age"`
	SedRate          *float64 `json:"sed_rate"`
	Quantity         *float64 `json:"quantity"`
	Concentration    *float64 `json:"concentration"`
	Influx           *float64 `json:"influx"`
	QuantityType     string   `json:"quantity_type_code"`
	ConcProvenance   string   `json:"concentration_provenance"`
	InfluxProvenance string   `json:"influx_provenance"`
}

// GetEnriched serves one site's enriched series
func (h *Handlers) GetEnriched(w http.ResponseWriter, req *http.Request) {
	m, err := h.loadManifest()
	if err != nil {
		h.fail(w, req, http.StatusNotFound, err)
		return
	}
	siteID, err := strconv.Atoi(mux.Vars(req)["id"])
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, fmt.Errorf("bad site id: %w", err))
		return
	}

	path := sitefile.SitePath(filepath.Join(h.dataDir, "enriched"), siteID)
	samples, err := sitefile.ReadEnriched(path, m.Config.Source.Sentinel)
	if err != nil {
		h.fail(w, req, http.StatusNotFound, fmt.Errorf("site %s: %w", types.SiteLabel(siteID), err))
		return
	}

	rows := make([]EnrichedResponse, len(samples))
	for i := range samples {
		es := &samples[i]
		rows[i] = EnrichedResponse{
			SampleIndex:      es.Index,
			SampleID:         es.SampleID,
			Depth:            nullable(es.Depth),
			EstAge:           nullable(es.EstAge),
			SedRate:          nullable(es.SedRate),
			Quantity:         nullable(es.Quantity),
			Concentration:    nullable(es.Concentration),
			Influx:           nullable(es.Influx),
			QuantityType:     string(es.QuantityType),
			ConcProvenance:   es.ConcProvenance,
			InfluxProvenance: es.InfluxProvenance,
		}
	}
	h.write(w, req, rows)
}

// BinnedResponse is one occupied bin as served by the API.
type BinnedResponse struct {
	BinAge      float64 `json:"bin_age"`
	MeanValue   float64 `json:"mean_value"`
	SampleCount int     `json:"sample_count"`
}

// GetBinned serves one site's binned series for the run's configured
// transform and bin step
func (h *Handlers) GetBinned(w http.ResponseWriter, req *http.Request) {
	m, err := h.loadManifest()
	if err != nil {
		h.fail(w, req, http.StatusNotFound, err)
		return
	}
	siteID, err := strconv.Atoi(mux.Vars(req)["id"])
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, fmt.Errorf("bad site id: %w", err))
		return
	}

	binnedDir := filepath.Join(h.dataDir, "binned",
		sitefile.BinnedDir(m.Config.Binning.Transform, m.Config.Binning.Step))
	records, err := sitefile.ReadBinned(sitefile.SitePath(binnedDir, siteID))
	if err != nil {
		h.fail(w, req, http.StatusNotFound, fmt.Errorf("site %s: %w", types.SiteLabel(siteID), err))
		return
	}

	rows := make([]BinnedResponse, len(records))
	for i, rec := range records {
		rows[i] = BinnedResponse{BinAge: rec.BinAge, MeanValue: rec.Mean, SampleCount: rec.Count}
	}
	h.write(w, req, rows)
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		h.logger.Errorf("error writing response: %v", err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, status int, err error) {
	h.logger.Debugf("%s %s: %v", req.Method, req.URL.Path, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func nullable(v types.Value) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
