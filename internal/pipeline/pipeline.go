// Package pipeline drives the two per-site stages over a whole site
// list: derivation (source database to enriched CSVs plus site list)
// and binning (site list plus enriched CSVs to transformed, binned
// CSVs). Sites are independent, so each stage fans out over a bounded
// worker pool; the only shared state is the run log sink and the
// stage counters.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/charflux/charflux/internal/binning"
	"github.com/charflux/charflux/internal/database"
	"github.com/charflux/charflux/internal/derive"
	"github.com/charflux/charflux/internal/sitefile"
	"github.com/charflux/charflux/internal/transform"
	"github.com/charflux/charflux/internal/types"
	"github.com/charflux/charflux/pkg/config"
)

// Pipeline runs the derivation and binning stages for one configured
// run.
type Pipeline struct {
	cfg    *config.Data
	source database.SampleSource
	logger *zap.SugaredLogger

	runID    uuid.UUID
	manifest *Manifest

	mu   sync.Mutex // guards sink and siteList
	sink *runLog
}

// New creates a pipeline. The source may be nil when only the binning
// stage will run.
func New(cfg *config.Data, source database.SampleSource, logger *zap.SugaredLogger) *Pipeline {
	runID := uuid.New()
	return &Pipeline{
		cfg:      cfg,
		source:   source,
		logger:   logger,
		runID:    runID,
		manifest: newManifest(runID, cfg),
	}
}

// Run executes the requested stage: "derive", "bin", or "all".
func (p *Pipeline) Run(ctx context.Context, stage string) error {
	if err := os.MkdirAll(p.cfg.Pipeline.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	sink, err := openRunLog(filepath.Join(p.cfg.Pipeline.OutputDir, "run.log"), p.logger)
	if err != nil {
		return err
	}
	p.sink = sink
	defer sink.Close()

	switch stage {
	case "derive":
		err = p.runDerive(ctx)
	case "bin":
		err = p.runBin(ctx)
	case "all":
		if err = p.runDerive(ctx); err == nil {
			err = p.runBin(ctx)
		}
	default:
		return fmt.Errorf("unknown stage %q: use 'derive', 'bin', or 'all'", stage)
	}
	if err != nil {
		return err
	}

	return p.manifest.Write(p.cfg.Pipeline.OutputDir)
}

func (p *Pipeline) workers() int {
	if p.cfg.Pipeline.Workers > 0 {
		return p.cfg.Pipeline.Workers
	}
	return runtime.NumCPU()
}

// runDerive loads every site from the source, derives it, and writes
// the enriched CSVs plus the site list. Collaborator failures skip the
// affected site; only structural problems abort.
func (p *Pipeline) runDerive(ctx context.Context) error {
	if p.source == nil {
		return fmt.Errorf("derive stage requires a source database")
	}

	enrichedDir := filepath.Join(p.cfg.Pipeline.OutputDir, "enriched")
	if err := os.MkdirAll(enrichedDir, 0o755); err != nil {
		return fmt.Errorf("creating enriched directory: %w", err)
	}

	sites, err := p.source.Sites(ctx)
	if err != nil {
		return fmt.Errorf("listing sites: %w", err)
	}
	p.logger.Infof("derivation stage: %d sites, %d workers", len(sites), p.workers())

	var (
		listMu   sync.Mutex
		siteList []sitefile.SiteListEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for _, site := range sites {
		site := site
		g.Go(func() error {
			samples, err := p.source.SamplesForSite(gctx, site.ID)
			if err != nil {
				// Collaborator failure: skip the site, keep the run.
				p.logSite(site.ID, fmt.Sprintf("Site %s skipped: %v", types.SiteLabel(site.ID), err))
				p.manifest.Derive.skip()
				return nil
			}

			result := derive.Derive(site.ID, samples)
			if result == nil {
				p.logSite(site.ID, fmt.Sprintf("Site %s 0 samples, skipped", types.SiteLabel(site.ID)))
				p.manifest.Derive.skip()
				return nil
			}
			p.logSiteEvents(site.ID, result.Events)

			path := sitefile.SitePath(enrichedDir, site.ID)
			if err := sitefile.WriteEnriched(path, result.Samples, p.cfg.Source.Sentinel); err != nil {
				// A per-site output file that cannot be written is a
				// collaborator failure like an unreadable input: skip
				// the site, keep the run.
				p.logSite(site.ID, fmt.Sprintf("Site %s skipped: %v", types.SiteLabel(site.ID), err))
				p.manifest.Derive.skip()
				return nil
			}

			listMu.Lock()
			siteList = append(siteList, sitefile.SiteListEntry{
				Site:  site,
				NSamp: len(result.Samples),
				Flags: result.Flags,
			})
			listMu.Unlock()
			p.manifest.Derive.done(len(result.Samples))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Worker completion order is arbitrary; the site list is stable.
	sort.Slice(siteList, func(i, j int) bool { return siteList[i].Site.ID < siteList[j].Site.ID })
	return sitefile.WriteSiteList(filepath.Join(p.cfg.Pipeline.OutputDir, "sites.csv"), siteList)
}

// runBin reads the site list, transforms and bins each site's series,
// and writes the binned CSVs under a transform/step-labelled
// directory. A missing per-site file is a collaborator failure and
// skips that site.
func (p *Pipeline) runBin(ctx context.Context) error {
	grid, err := binning.NewGrid(p.cfg.Binning.Start, p.cfg.Binning.End, p.cfg.Binning.Step)
	if err != nil {
		return err
	}
	tf, err := transform.New(p.cfg.Binning.Transform)
	if err != nil {
		return err
	}

	entries, err := sitefile.ReadSiteList(filepath.Join(p.cfg.Pipeline.OutputDir, "sites.csv"))
	if err != nil {
		return fmt.Errorf("reading site list: %w", err)
	}

	enrichedDir := filepath.Join(p.cfg.Pipeline.OutputDir, "enriched")
	binnedDir := filepath.Join(p.cfg.Pipeline.OutputDir, "binned",
		sitefile.BinnedDir(p.cfg.Binning.Transform, p.cfg.Binning.Step))
	if err := os.MkdirAll(binnedDir, 0o755); err != nil {
		return fmt.Errorf("creating binned directory: %w", err)
	}
	p.logger.Infof("binning stage: %d sites, transform %s, step %v, %d workers",
		len(entries), p.cfg.Binning.Transform, p.cfg.Binning.Step, p.workers())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			label := types.SiteLabel(entry.Site.ID)
			points, err := sitefile.ReadSeries(
				sitefile.SitePath(enrichedDir, entry.Site.ID),
				p.cfg.Pipeline.ValueColumn, p.cfg.Source.Sentinel)
			if err != nil {
				p.logSite(entry.Site.ID, fmt.Sprintf("Site %s skipped: %v", label, err))
				p.manifest.Bin.skip()
				return nil
			}

			values := make([]types.Value, len(points))
			for i, pt := range points {
				values[i] = pt.Value
			}
			transformed := tf(values)
			for i := range points {
				points[i].Value = transformed[i]
			}

			result := binning.BinSite(grid, points)
			if result.Skipped {
				p.logSite(entry.Site.ID, fmt.Sprintf("Site %s skipped: %s", label, result.Reason))
				p.manifest.Bin.skip()
				return nil
			}

			path := sitefile.SitePath(binnedDir, entry.Site.ID)
			if err := sitefile.WriteBinned(path, result.Records); err != nil {
				p.logSite(entry.Site.ID, fmt.Sprintf("Site %s skipped: %v", label, err))
				p.manifest.Bin.skip()
				return nil
			}
			p.logSite(entry.Site.ID, fmt.Sprintf("Site %s %d bins", label, len(result.Records)))
			p.manifest.Bin.done(len(result.Records))
			return nil
		})
	}
	return g.Wait()
}

// logSite writes one line to the run log and mirrors it to zap. The
// sink mutex keeps concurrent sites from interleaving mid-line.
func (p *Pipeline) logSite(siteID int, line string) {
	p.mu.Lock()
	p.sink.WriteLine(line)
	p.mu.Unlock()
	p.logger.Debugw(line, "site", siteID, "run", p.runID.String())
}

// logSiteEvents writes one site's ordered event block as a unit, so
// lines of different sites never interleave within a block.
func (p *Pipeline) logSiteEvents(siteID int, events []string) {
	p.mu.Lock()
	for _, line := range events {
		p.sink.WriteLine(line)
	}
	p.mu.Unlock()
	for _, line := range events {
		p.logger.Debugw(line, "site", siteID, "run", p.runID.String())
	}
}
