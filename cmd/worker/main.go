package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/MapPoster/internal/app"
	"github.com/dharsanguruparan/MapPoster/internal/config"
	"github.com/dharsanguruparan/MapPoster/internal/logging"
	"github.com/dharsanguruparan/MapPoster/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.AppEnv, cfg.LogLevel)
	if cfg.RedisAddr == "" {
		log.Fatal().Msg("REDIS_ADDR is required for the worker")
	}

	mirror, err := app.Mirror(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init object storage")
	}

	server := asynq.NewServer(app.RedisOpt(cfg), asynq.Config{
		Concurrency: cfg.Workers,
		Logger:      worker.AsynqLogger(log),
	})
	processor := worker.NewProcessor(app.Gallery(cfg), mirror, log)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Info().Str("redis", cfg.RedisAddr).Bool("mirror", mirror != nil).Msg("worker started")
	if err := server.Run(mux); err != nil {
		log.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
}
