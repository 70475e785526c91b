// charflux-server serves a completed pipeline run directory over a
// read-only HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/charflux/charflux/internal/log"
	"github.com/charflux/charflux/internal/server"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	dataDir := flag.String("data", "output", "Completed pipeline run directory to serve")
	listenAddr := flag.String("listen-addr", "0.0.0.0", "Address to listen on")
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("charflux-server %s\n", version)
		os.Exit(0)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	ctrl, err := server.NewController(ctx, &wg, server.Config{
		DataDir:    *dataDir,
		ListenAddr: *listenAddr,
		Port:       *port,
	}, log.GetSugaredLogger())
	if err != nil {
		log.Errorf("Failed to create results server: %v", err)
		os.Exit(1)
	}

	if err := ctrl.StartController(); err != nil {
		log.Errorf("Failed to start results server: %v", err)
		os.Exit(1)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("shutdown signal received, shutting down...")
	cancel()
	wg.Wait()
}
