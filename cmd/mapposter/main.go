// Command mapposter renders posters from the command line and manages the
// local gallery without running the API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/MapPoster/internal/config"
	"github.com/dharsanguruparan/MapPoster/internal/logging"
)

var verbose bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mapposter: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapposter",
		Short: "City map poster generator",
		Long: `mapposter turns a city name into a styled map poster using OpenStreetMap data.
Configuration is read from the environment (and .env) exactly like the API server.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")
	cmd.AddCommand(
		newGenerateCmd(),
		newThemesCmd(),
		newSizesCmd(),
		newPublishCmd(),
		newGalleryCmd(),
		newCatalogCmd(),
	)
	return cmd
}

// loadConfig reads the configuration and builds a stderr logger. Without
// --verbose only warnings are shown.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := cfg.LogLevel
	if !verbose && level == "" {
		level = "warn"
	}
	return cfg, logging.NewWithWriter(cmd.ErrOrStderr(), cfg.AppEnv, level), nil
}
