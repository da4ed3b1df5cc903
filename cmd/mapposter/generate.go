package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/MapPoster/internal/app"
	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/model"
	"github.com/dharsanguruparan/MapPoster/internal/processing"
	"github.com/dharsanguruparan/MapPoster/internal/storage"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
	"github.com/dharsanguruparan/MapPoster/internal/worker"
)

const allThemes = "all"

func newGenerateCmd() *cobra.Command {
	var (
		req       model.GenerateRequest
		lat, lon  float64
		svg       bool
		themeName string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render posters into the draft area",
		Example: `  mapposter generate --city "New York" --country USA --theme noir
  mapposter generate --city Tokyo --country Japan --theme all --thumbnail`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("latitude") || cmd.Flags().Changed("longitude") {
				req.Latitude, req.Longitude = &lat, &lon
			}
			if svg {
				req.Format = model.FormatSVG
			}
			names := []string{themeName}
			if themeName == allThemes {
				names, err = theme.NewStore(cfg.ThemesDir, log).List()
				if err != nil {
					return err
				}
				if len(names) == 0 {
					return fmt.Errorf("no themes found in %s", cfg.ThemesDir)
				}
			}

			catalog, closeCatalog, err := app.Catalog(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCatalog()
			store := storage.NewTaskStore(0)
			runner, err := app.NewRunner(cfg, store, catalog, log)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Generating %d poster(s) for %s\n", len(names), req.City)
			failed := 0
			for _, name := range names {
				themed := req
				themed.Theme = name
				themed.ApplyDefaults(cfg.PosterSizes.Default)
				if err := themed.Validate(); err != nil {
					return err
				}
				task := store.Create()
				runner.Run(ctx, processing.Job{TaskID: task.ID, Request: themed})
				done, err := store.Get(task.ID)
				if err != nil {
					return err
				}
				if done.Status != model.StatusCompleted {
					failed++
					fmt.Fprintf(out, "  x %s: %s\n", name, done.Error)
					continue
				}
				fmt.Fprintf(out, "  + %s: %s\n", name, draftPath(cfg.TempDir, done.Result.PosterURL))
				// Later themes reuse the center instead of geocoding again.
				if req.Latitude == nil {
					c := done.Result.Coords
					req.Latitude, req.Longitude = &c.Lat, &c.Lon
				}
			}

			if req.Thumbnail && failed < len(names) {
				collages, err := worker.NewProcessor(app.Drafts(cfg), nil, log).RebuildCollages(gallery.Slug(req.City))
				if err != nil {
					return err
				}
				for _, c := range collages {
					fmt.Fprintf(out, "  collage: %s\n", c)
				}
			}
			if failed == len(names) {
				return errors.New("no poster was generated")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&req.City, "city", "c", "", "City name")
	f.StringVarP(&req.Country, "country", "C", "", "Country name")
	f.StringVarP(&themeName, "theme", "t", model.DefaultTheme, `Theme name, or "all"`)
	f.IntVarP(&req.Distance, "distance", "d", model.DefaultDistance, "Map radius in meters")
	f.StringVar(&req.NetworkType, "network-type", model.DefaultNetworkType, "Street network: "+strings.Join(model.NetworkTypes, ", "))
	f.Float64Var(&lat, "latitude", 0, "Map center latitude (skips geocoding)")
	f.Float64Var(&lon, "longitude", 0, "Map center longitude (skips geocoding)")
	f.BoolVar(&svg, "svg", false, "Write SVG instead of PNG")
	f.BoolVar(&req.Thumbnail, "thumbnail", false, "Write thumbnails and rebuild the city collages")
	f.BoolVar(&req.HideAttribution, "hide-attribution", false, "Omit the OpenStreetMap attribution")
	f.StringVar(&req.PosterSize, "poster-size", "", "Poster size key (see 'mapposter sizes')")
	_ = cmd.MarkFlagRequired("city")
	return cmd
}

// draftPath maps a draft URL back to the file on disk.
func draftPath(root, url string) string {
	rel := strings.TrimPrefix(url, gallery.DraftURLPrefix+"/")
	return filepath.Join(root, filepath.FromSlash(rel))
}
