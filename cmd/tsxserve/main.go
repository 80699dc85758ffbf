// Command tsxserve watches tilesets, keeps them in the catalog and pushes
// changes to websocket clients.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/retroblast-engine/tsxset/internal/config"
	"github.com/retroblast-engine/tsxset/internal/live"
	"github.com/retroblast-engine/tsxset/internal/server"
	"github.com/retroblast-engine/tsxset/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config file (required)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("Config file is required. Use -config flag")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	catalog, err := store.Open(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Type, err)
	}
	defer catalog.Close()
	log.Printf("Using %s catalog", cfg.Store.Type)

	hub := live.NewHub(nil)
	watcher := live.NewWatcher(os.DirFS(cfg.AssetRoot), cfg.Tilesets, catalog, hub, live.Options{
		Interval:    cfg.PollInterval.Duration,
		CheckImages: cfg.CheckImages,
	})

	srv := server.New(catalog, hub)
	srv.Start(cfg.Listen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Watching %d tilesets under %s every %s", len(cfg.Tilesets), cfg.AssetRoot, cfg.PollInterval)
	watcher.Run(ctx)

	log.Println("Shutting down...")
	hub.CloseAll()
	if err := srv.Stop(); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	}
}
