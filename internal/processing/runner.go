package processing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/MapPoster/internal/config"
	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/model"
	"github.com/dharsanguruparan/MapPoster/internal/render"
	"github.com/dharsanguruparan/MapPoster/internal/storage"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
	"github.com/dharsanguruparan/MapPoster/internal/thumbnail"
)

// Progress checkpoints reported while a task runs.
const (
	ProgressStarted   = 10
	ProgressResolving = 20
	ProgressChecking  = 30
	ProgressPreparing = 40
	ProgressRendering = 50
	ProgressSaving    = 90
)

// Resolver turns a place name into a map center.
type Resolver interface {
	Resolve(ctx context.Context, name, country string) (model.Point, error)
}

// Renderer draws one poster file.
type Renderer interface {
	Render(ctx context.Context, job render.Job) error
}

// ThemeLoader returns a usable theme for any name.
type ThemeLoader interface {
	Load(name string) theme.Theme
}

// Catalog records finished posters somewhere durable.
type Catalog interface {
	RecordPoster(ctx context.Context, taskID string, result model.PosterResult, meta model.PosterMetadata) error
}

// Thumbnailer writes a reduced copy of a poster into dir.
type Thumbnailer func(imagePath, dir string, maxDimension int) (string, error)

// Deps bundles the collaborators of a Runner. Catalog and Thumbnailer are
// optional.
type Deps struct {
	Store       *storage.TaskStore
	Resolver    Resolver
	Renderer    Renderer
	Themes      ThemeLoader
	Drafts      gallery.Layout
	Sizes       config.PosterSizes
	Catalog     Catalog
	Thumbnailer Thumbnailer
	Log         zerolog.Logger
}

// Limits holds the distance guards and the per-task settings.
type Limits struct {
	MaxDistance     int
	WarningDistance int
	ThumbnailSize   int
	Timeout         time.Duration
}

// Runner executes generation tasks and records every transition in the
// store. It holds no per-task state, so one Runner serves all workers.
type Runner struct {
	Deps
	limits Limits
	now    func() time.Time
}

// NewRunner builds a Runner.
func NewRunner(deps Deps, limits Limits) *Runner {
	if deps.Thumbnailer == nil {
		deps.Thumbnailer = thumbnail.Generate
	}
	return &Runner{Deps: deps, limits: limits, now: time.Now}
}

// Run processes one task to a terminal state. It returns once the task is
// completed or failed; on timeout the task is failed immediately and the
// abandoned work can no longer modify it.
func (r *Runner) Run(ctx context.Context, job Job) {
	if r.limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.limits.Timeout)
		defer cancel()
	}
	log := r.Log.With().Str("task_id", job.TaskID).Str("city", job.Request.City).Logger()

	type outcome struct {
		result model.PosterResult
		err    error
	}
	// Buffered so the goroutine can finish even after Run stopped listening.
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("internal error: %v", rec)}
			}
		}()
		result, err := r.execute(ctx, job, log)
		done <- outcome{result, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	if out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.err = timeoutError(r.limits.Timeout)
	}

	if out.err != nil {
		log.Error().Err(out.err).Msg("task failed")
		if err := r.Store.Fail(job.TaskID, out.err.Error()); err != nil {
			log.Warn().Err(err).Msg("could not record task failure")
		}
		return
	}
	if err := r.Store.Complete(job.TaskID, out.result); err != nil {
		log.Warn().Err(err).Msg("could not record task result")
		return
	}
	log.Info().Str("poster_url", out.result.PosterURL).Msg("task completed")
}

func (r *Runner) execute(ctx context.Context, job Job, log zerolog.Logger) (model.PosterResult, error) {
	req := job.Request
	if err := r.Store.Start(job.TaskID, ProgressStarted); err != nil {
		return model.PosterResult{}, fmt.Errorf("start task: %w", err)
	}
	log.Info().Msg("task started")

	center, ok := req.Coordinates()
	if !ok {
		r.advance(job.TaskID, ProgressResolving)
		point, err := r.Resolver.Resolve(ctx, req.City, req.Country)
		if err != nil {
			return model.PosterResult{}, err
		}
		center = point
	}
	log.Debug().Stringer("center", center).Msg("map center resolved")

	r.advance(job.TaskID, ProgressChecking)
	if req.Distance > r.limits.MaxDistance {
		return model.PosterResult{}, &DistanceError{Distance: req.Distance, Max: r.limits.MaxDistance}
	}
	simplified := false
	if r.limits.WarningDistance > 0 && req.Distance > r.limits.WarningDistance {
		simplified = true
		log.Warn().Int("distance", req.Distance).Int("warning_distance", r.limits.WarningDistance).
			Msg("large distance, fetching major roads only")
	}

	r.advance(job.TaskID, ProgressPreparing)
	slug := gallery.Slug(req.City)
	dir, err := r.Drafts.Ensure(slug)
	if err != nil {
		return model.PosterResult{}, err
	}

	r.advance(job.TaskID, ProgressRendering)
	size := r.Sizes.Lookup(req.PosterSize)
	name, runID, err := gallery.ReservePoster(dir, req.Theme, req.Extension(), r.now())
	if err != nil {
		return model.PosterResult{}, err
	}
	posterPath := filepath.Join(dir, name)
	err = r.Renderer.Render(ctx, render.Job{
		Center:          center,
		Distance:        req.Distance,
		NetworkType:     req.NetworkType,
		Simplified:      simplified,
		Theme:           r.Themes.Load(req.Theme),
		WidthInches:     size.Width,
		HeightInches:    size.Height,
		Format:          req.Extension(),
		City:            req.City,
		Country:         req.Country,
		HideAttribution: req.HideAttribution,
		OutputPath:      posterPath,
	})
	if err != nil {
		_ = os.Remove(posterPath)
		return model.PosterResult{}, &upstreamError{err: err}
	}

	result := model.PosterResult{
		PosterURL:  r.Drafts.URL(slug, name),
		City:       req.City,
		Country:    req.Country,
		Theme:      req.Theme,
		Coords:     center,
		CreatedAt:  runID,
		PosterSize: size.Key,
		SizeLabel:  size.Label,
	}
	if req.Thumbnail && req.Extension() == model.FormatPNG {
		result.ThumbnailURL = r.thumbnail(slug, posterPath, log)
	}

	r.advance(job.TaskID, ProgressSaving)
	meta := model.PosterMetadata{
		PosterSize:  size.Key,
		SizeLabel:   size.Label,
		City:        req.City,
		Country:     req.Country,
		Theme:       req.Theme,
		Distance:    req.Distance,
		NetworkType: req.NetworkType,
		Format:      req.Extension(),
		CreatedAt:   runID,
	}
	if err := gallery.WriteMetadata(posterPath, meta); err != nil {
		return model.PosterResult{}, err
	}
	if r.Catalog != nil {
		if err := r.Catalog.RecordPoster(ctx, job.TaskID, result, meta); err != nil {
			log.Warn().Err(err).Msg("catalog write failed")
		}
	}
	return result, nil
}

// thumbnail is best effort: a missing thumbnail never fails the task.
func (r *Runner) thumbnail(slug, posterPath string, log zerolog.Logger) *string {
	path, err := r.Thumbnailer(posterPath, r.Drafts.ThumbnailsDir(slug), r.limits.ThumbnailSize)
	switch {
	case errors.Is(err, thumbnail.ErrAlreadySmall):
		log.Debug().Msg("poster already small, thumbnail skipped")
		return nil
	case err != nil:
		log.Warn().Err(err).Msg("thumbnail failed")
		return nil
	}
	url := r.Drafts.URL(slug, "thumbnails", filepath.Base(path))
	return &url
}

func (r *Runner) advance(taskID string, progress int) {
	if err := r.Store.Advance(taskID, progress); err != nil {
		r.Log.Debug().Err(err).Str("task_id", taskID).Int("progress", progress).Msg("progress not recorded")
	}
}
