// Package main is the entry point for the poster API. In Go every executable
// program must define package main and a main() function, while libraries use
// other package names.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dharsanguruparan/MapPoster/internal/app"
	"github.com/dharsanguruparan/MapPoster/internal/config"
	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/geoip"
	"github.com/dharsanguruparan/MapPoster/internal/logging"
	"github.com/dharsanguruparan/MapPoster/internal/processing"
	"github.com/dharsanguruparan/MapPoster/internal/server"
	"github.com/dharsanguruparan/MapPoster/internal/storage"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
)

func main() {
	// Step 1: load configuration from environment variables (Go prefers
	// returning values + errors rather than throwing exceptions).
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.AppEnv, cfg.LogLevel)

	// Step 2: create a context that cancels when SIGINT/SIGTERM arrive. Context
	// is Go's mechanism for cancellation deadlines and propagation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Step 3: construct dependencies. In Go it's idiomatic to instantiate
	// structs via constructors that return pointers.
	store := storage.NewTaskStore(cfg.TaskTTL)
	go store.RunJanitor(ctx, time.Minute)

	catalog, closeCatalog, err := app.Catalog(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open catalog")
	}
	defer closeCatalog()

	runner, err := app.NewRunner(cfg, store, catalog, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build generation pipeline")
	}
	processor := processing.New(store, runner, cfg.Workers, cfg.QueueSize, log)

	followUps, closeFollowUps, err := app.FollowUps(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init publish follow-ups")
	}
	defer closeFollowUps()

	deps := server.Deps{
		Config:    cfg,
		Store:     store,
		Processor: processor,
		Starter:   processor,
		Themes:    theme.NewStore(cfg.ThemesDir, log),
		Gallery:   gallery.NewScanner(app.Gallery(cfg), log),
		Publisher: app.NewPublisher(cfg, followUps, log),
		Log:       log,
	}
	countries, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		log.Warn().Err(err).Msg("geoip disabled")
	}
	if countries != nil {
		defer countries.Close()
		deps.GeoIP = countries
	}

	// Step 4: block until the HTTP server exits.
	srv := server.New(deps)
	if err := srv.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	// Let in-flight tasks observe the cancelled context before exiting.
	processor.Wait()
}
