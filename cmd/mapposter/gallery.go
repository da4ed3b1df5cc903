package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/MapPoster/internal/app"
	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
)

func newThemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List the installed themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			summaries, err := theme.NewStore(cfg.ThemesDir, log).Summaries()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tDESCRIPTION")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.DisplayName, s.Description)
			}
			return tw.Flush()
		},
	}
}

func newSizesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sizes",
		Short: "List the poster sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tINCHES\tLABEL")
			for _, s := range cfg.PosterSizes.Sizes {
				marker := ""
				if s.Key == cfg.PosterSizes.Default {
					marker = " (default)"
				}
				fmt.Fprintf(tw, "%s\t%gx%g\t%s%s\n", s.Key, s.Width, s.Height, s.Label, marker)
			}
			return tw.Flush()
		},
	}
}

func newPublishCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "publish <city-slug>",
		Short: "Merge a city's drafts into the gallery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("password") {
				password = cfg.AdminPassword
			}
			followUps, closeFollowUps, err := app.FollowUps(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeFollowUps()

			result, err := app.NewPublisher(cfg, followUps, log).Publish(cmd.Context(), password, args[0])
			if errors.Is(err, gallery.ErrDraftMissing) {
				return fmt.Errorf("no drafts for %q in %s", args[0], cfg.TempDir)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s to %s\n", result.Slug, result.GalleryDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Admin password (defaults to ADMIN_PASSWORD)")
	return cmd
}

func newGalleryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gallery",
		Short: "List the published cities",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cities, err := gallery.NewScanner(app.Gallery(cfg), log).Cities()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tCITY\tCOUNTRY\tPOSTERS\tUPDATED")
			for _, c := range cities {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", c.Slug, c.City, c.Country, c.ThemeCount, c.CreatedAt)
			}
			return tw.Flush()
		},
	}
}

func newCatalogCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the most recent posters recorded in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			repo, closeCatalog, err := app.Catalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeCatalog()
			posters, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tCITY\tTHEME\tSIZE\tURL")
			for _, p := range posters {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.RunID, p.City, p.Theme, p.PosterSize, p.PosterURL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of posters to show")
	return cmd
}
