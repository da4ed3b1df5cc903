// Package render draws posters: it fetches the map features around the center,
// lays them out with the poster typography and writes a PNG or SVG file.
package render

import (
	"context"
	"fmt"
	"image/png"
	"io"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/MapPoster/internal/fsutil"
	"github.com/dharsanguruparan/MapPoster/internal/model"
	"github.com/dharsanguruparan/MapPoster/internal/osm"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
)

// Fetcher downloads the map features of an area.
type Fetcher interface {
	Fetch(ctx context.Context, req osm.Request) (*osm.MapData, error)
}

// Job describes one poster.
type Job struct {
	Center          model.Point
	Distance        int
	NetworkType     string
	Simplified      bool
	Theme           theme.Theme
	WidthInches     float64
	HeightInches    float64
	Format          string
	City            string
	Country         string
	HideAttribution bool
	OutputPath      string
}

// Options tunes raster output.
type Options struct {
	DPI       float64
	MaxPixels int
}

// DefaultOptions renders at 300 DPI, capped at 16 megapixels.
func DefaultOptions() Options {
	return Options{DPI: 300, MaxPixels: 16_000_000}
}

// Renderer turns jobs into poster files.
type Renderer struct {
	fetcher Fetcher
	fonts   *FontSet
	opts    Options
	log     zerolog.Logger
}

// New constructs a Renderer. A nil font set selects the embedded Go fonts.
func New(fetcher Fetcher, fonts *FontSet, opts Options, log zerolog.Logger) *Renderer {
	if fonts == nil {
		fonts = GoFonts()
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultOptions().DPI
	}
	return &Renderer{fetcher: fetcher, fonts: fonts, opts: opts, log: log}
}

// Render fetches the map data and writes the poster to job.OutputPath.
func (r *Renderer) Render(ctx context.Context, job Job) error {
	data, err := r.fetcher.Fetch(ctx, osm.Request{
		Center:      job.Center,
		Distance:    job.Distance,
		NetworkType: job.NetworkType,
		Simplified:  job.Simplified,
	})
	if err != nil {
		return fmt.Errorf("fetch map data: %w", err)
	}
	r.log.Debug().
		Int("roads", len(data.Roads)).
		Int("water", len(data.Water)).
		Int("parks", len(data.Parks)).
		Msg("map data downloaded")
	if err := ctx.Err(); err != nil {
		return err
	}

	scene := BuildScene(data, SceneOptions{
		Center:          job.Center,
		Distance:        job.Distance,
		WidthInches:     job.WidthInches,
		HeightInches:    job.HeightInches,
		City:            job.City,
		Country:         job.Country,
		Palette:         job.Theme.Palette(),
		HideAttribution: job.HideAttribution,
	})

	switch job.Format {
	case model.FormatSVG:
		err = fsutil.WriteAtomic(job.OutputPath, func(w io.Writer) error {
			return WriteSVG(w, scene, r.fonts.Family)
		})
	default:
		img, rerr := Rasterize(scene, r.opts.DPI, r.opts.MaxPixels, r.fonts)
		if rerr != nil {
			return fmt.Errorf("rasterize poster: %w", rerr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err = fsutil.WriteAtomic(job.OutputPath, func(w io.Writer) error {
			return png.Encode(w, img)
		})
	}
	if err != nil {
		return fmt.Errorf("write poster: %w", err)
	}
	r.log.Info().Str("path", job.OutputPath).Str("format", job.Format).Msg("poster saved")
	return nil
}
