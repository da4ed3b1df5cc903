// Package worker runs the gallery follow-up jobs, either from the asynq
// queue or inline right after a publish.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/queue"
	"github.com/dharsanguruparan/MapPoster/internal/thumbnail"
)

// Mirror copies a local directory to object storage.
type Mirror interface {
	MirrorDir(ctx context.Context, localDir, prefix string) (int, error)
}

// Processor is plugged into the asynq worker loop. It also satisfies
// gallery.FollowUps for deployments without Redis.
type Processor struct {
	layout  gallery.Layout
	scanner *gallery.Scanner
	mirror  Mirror
	log     zerolog.Logger
}

// NewProcessor constructs a worker processor for one area. mirror may be nil.
func NewProcessor(layout gallery.Layout, mirror Mirror, log zerolog.Logger) *Processor {
	return &Processor{
		layout:  layout,
		scanner: gallery.NewScanner(layout, log),
		mirror:  mirror,
		log:     log,
	}
}

// Handler registers the gallery job handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.RebuildCollagesTask, p.handleCollages)
	mux.HandleFunc(queue.MirrorGalleryTask, p.handleMirror)
	return mux
}

// AfterPublish runs the follow-ups synchronously.
func (p *Processor) AfterPublish(ctx context.Context, slug string) error {
	if _, err := p.RebuildCollages(slug); err != nil {
		return err
	}
	if p.mirror == nil {
		return nil
	}
	return p.Mirror(ctx, slug)
}

// RebuildCollages replaces the collages of slug with fresh grids of every
// poster thumbnail in the directory.
func (p *Processor) RebuildCollages(slug string) ([]string, error) {
	thumbs, err := p.scanner.Thumbnails(slug)
	if err != nil {
		return nil, fmt.Errorf("collect thumbnails of %s: %w", slug, err)
	}
	dir := p.layout.CollagesDir(slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create collage directory: %w", err)
	}
	stale, _ := filepath.Glob(filepath.Join(dir, "collage_*.jpg"))
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale collage: %w", err)
		}
	}
	collages, err := thumbnail.Collages(thumbs, dir)
	if err != nil {
		return collages, fmt.Errorf("build collages of %s: %w", slug, err)
	}
	p.log.Info().Str("slug", slug).Int("thumbnails", len(thumbs)).Int("collages", len(collages)).Msg("collages rebuilt")
	return collages, nil
}

// Mirror uploads the city directory of slug to object storage.
func (p *Processor) Mirror(ctx context.Context, slug string) error {
	if p.mirror == nil {
		return fmt.Errorf("object storage not configured: %w", asynq.SkipRetry)
	}
	n, err := p.mirror.MirrorDir(ctx, p.layout.CityDir(slug), slug)
	if err != nil {
		return err
	}
	p.log.Info().Str("slug", slug).Int("objects", n).Msg("gallery mirrored")
	return nil
}

func (p *Processor) handleCollages(_ context.Context, task *asynq.Task) error {
	payload, err := queue.Decode(task)
	if err != nil {
		return err
	}
	if _, err := p.RebuildCollages(payload.Slug); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		p.log.Error().Err(err).Str("slug", payload.Slug).Msg("collage rebuild failed")
		return err
	}
	return nil
}

func (p *Processor) handleMirror(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.Decode(task)
	if err != nil {
		return err
	}
	if err := p.Mirror(ctx, payload.Slug); err != nil {
		p.log.Error().Err(err).Str("slug", payload.Slug).Msg("gallery mirror failed")
		return err
	}
	return nil
}
