// Package cli implements the spacepod command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jbandes/spacepod-go/internal/api"
	"github.com/jbandes/spacepod-go/internal/cache"
	"github.com/jbandes/spacepod-go/internal/core"
)

// Global flags
var (
	verbose  bool
	rawJSON  bool
	cacheDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "spacepod",
	Short:   "spacepod – NASA Astronomy Picture of the Day, cached locally",
	Long:    `Fetches NASA's Astronomy Picture of the Day and keeps a small on-disk cache so repeated calls work offline and avoid redundant network requests.`,
	Version: core.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&rawJSON, "json", false, "Emit raw JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default: ~/.spacepod/cache)")
}

// setup wires the cache manager from configuration and flags.
func setup() (*cache.Manager, core.Config, zerolog.Logger, error) {
	_ = godotenv.Load()

	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, core.Config{}, zerolog.Logger{}, err
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}

	logger := core.NewLogger(cfg.AppEnv, verbose)

	store, err := cache.NewStore(cfg.CacheDir, cfg.RetentionDays, logger)
	if err != nil {
		return nil, core.Config{}, zerolog.Logger{}, err
	}

	client := api.NewClient(cfg.APODBaseURL, cfg.APIKey, nil, logger)
	oembed := api.NewOEmbedClient(cfg.OEmbedBaseURL, nil, logger)
	manager := cache.NewManager(client, oembed, store, cfg.CheckInterval, logger)
	return manager, cfg, logger, nil
}
