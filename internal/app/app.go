// Package app assembles the generation pipeline and the gallery services
// from a Config. The server, the worker and the CLI share it so they wire
// the collaborators identically.
package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/MapPoster/internal/config"
	"github.com/dharsanguruparan/MapPoster/internal/database"
	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/geocode"
	"github.com/dharsanguruparan/MapPoster/internal/osm"
	"github.com/dharsanguruparan/MapPoster/internal/place"
	"github.com/dharsanguruparan/MapPoster/internal/processing"
	"github.com/dharsanguruparan/MapPoster/internal/queue"
	"github.com/dharsanguruparan/MapPoster/internal/render"
	"github.com/dharsanguruparan/MapPoster/internal/repository"
	"github.com/dharsanguruparan/MapPoster/internal/s3storage"
	"github.com/dharsanguruparan/MapPoster/internal/signing"
	"github.com/dharsanguruparan/MapPoster/internal/storage"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
	"github.com/dharsanguruparan/MapPoster/internal/worker"
)

// Drafts is the layout of the draft area.
func Drafts(cfg *config.Config) gallery.Layout {
	return gallery.Layout{Root: cfg.TempDir, URLPrefix: gallery.DraftURLPrefix}
}

// Gallery is the layout of the public gallery.
func Gallery(cfg *config.Config) gallery.Layout {
	return gallery.Layout{Root: cfg.PostersDir, URLPrefix: gallery.GalleryURLPrefix}
}

// RedisOpt converts the Redis settings for asynq.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// Catalog opens the Postgres catalog when DATABASE_URL is set. The returned
// close function is never nil.
func Catalog(ctx context.Context, cfg *config.Config) (*repository.PosterRepository, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, nil
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repository.NewPosterRepository(pool), pool.Close, nil
}

// NewRunner builds the generation pipeline around store. catalog may be nil.
func NewRunner(cfg *config.Config, store *storage.TaskStore, catalog *repository.PosterRepository, log zerolog.Logger) (*processing.Runner, error) {
	nominatim, err := geocode.NewNominatim(geocode.Options{
		BaseURL:   cfg.NominatimURL,
		UserAgent: cfg.NominatimUserAgent,
		Timeout:   cfg.GeocodeTimeout,
		Interval:  cfg.GeocodeInterval,
	}, nil)
	if err != nil {
		return nil, err
	}
	fonts, err := render.LoadFonts(cfg.FontsDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.FontsDir).Msg("poster fonts missing, using embedded fonts")
	}
	overpass := osm.NewClient(cfg.OverpassURL, cfg.NominatimUserAgent, cfg.OverpassTimeout, nil)

	deps := processing.Deps{
		Store:    store,
		Resolver: place.NewResolver(nominatim, place.NewValidatorWithAliases(cfg.CountryAliases), log),
		Renderer: render.New(overpass, fonts, render.DefaultOptions(), log),
		Themes:   theme.NewStore(cfg.ThemesDir, log),
		Drafts:   Drafts(cfg),
		Sizes:    cfg.PosterSizes,
		Log:      log,
	}
	// Assigned only when present so the interface stays nil otherwise.
	if catalog != nil {
		deps.Catalog = catalog
	}
	return processing.NewRunner(deps, processing.Limits{
		MaxDistance:     cfg.MaxDistance,
		WarningDistance: cfg.WarningDistance,
		ThumbnailSize:   cfg.ThumbnailSize,
		Timeout:         cfg.TaskTimeout,
	}), nil
}

// Mirror connects to object storage when configured and returns nil
// otherwise.
func Mirror(ctx context.Context, cfg *config.Config) (worker.Mirror, error) {
	if !s3storage.Enabled(cfg) {
		return nil, nil
	}
	store, err := s3storage.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// FollowUps picks how publish follow-ups run: through asynq when Redis is
// configured, inline otherwise. The close function is never nil.
func FollowUps(ctx context.Context, cfg *config.Config, log zerolog.Logger) (gallery.FollowUps, func(), error) {
	if cfg.RedisAddr != "" {
		client := asynq.NewClient(RedisOpt(cfg))
		closeFn := func() { _ = client.Close() }
		return queue.NewDispatcher(client, s3storage.Enabled(cfg)), closeFn, nil
	}
	mirror, err := Mirror(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return worker.NewProcessor(Gallery(cfg), mirror, log), func() {}, nil
}

// NewPublisher wires the admin-protected publish flow.
func NewPublisher(cfg *config.Config, followUps gallery.FollowUps, log zerolog.Logger) *gallery.Publisher {
	drafts, pub := Drafts(cfg), Gallery(cfg)
	return gallery.NewPublisher(signing.NewVerifier(cfg.AdminPassword), gallery.NewMerger(drafts, pub), pub, followUps, log)
}
