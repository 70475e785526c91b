// Package server serves a completed run directory over a read-only
// HTTP API: site list, per-site enriched and binned series, and the
// run manifest.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/charflux/charflux/internal/log"
	"github.com/charflux/charflux/pkg/responseformat"
)

// Config holds the results server settings.
type Config struct {
	// DataDir is a completed run's output directory
	DataDir string

	ListenAddr string
	Port       int
}

// Controller represents the results server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	cfg      Config
	Server   http.Server
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new results server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg Config, logger *zap.SugaredLogger) (*Controller, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("results server requires a run data directory")
	}
	if cfg.ListenAddr == "" {
		logger.Info("listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		cfg.ListenAddr = "0.0.0.0"
	}
	if cfg.Port == 0 {
		logger.Info("port not provided; defaulting to 8080")
		cfg.Port = 8080
	}

	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		cfg:    cfg,
		logger: logger,
	}
	ctrl.handlers = NewHandlers(cfg.DataDir, responseformat.NewFormatter(), logger)

	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", cfg.ListenAddr, cfg.Port)
	ctrl.Server.Handler = router

	return ctrl, nil
}

// StartController starts the results server
func (c *Controller) StartController() error {
	log.Info("Starting results server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("results server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the results server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", c.handlers.GetHealth)
	router.HandleFunc("/manifest", c.handlers.GetManifest)
	router.HandleFunc("/sites", c.handlers.GetSites)
	router.HandleFunc("/sites/{id:[0-9]+}/enriched", c.handlers.GetEnriched)
	router.HandleFunc("/sites/{id:[0-9]+}/binned", c.handlers.GetBinned)

	return router
}
