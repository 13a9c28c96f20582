package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-geocode-keys/config"
	"github.com/gcbaptista/go-geocode-keys/index"
	"github.com/gcbaptista/go-geocode-keys/internal/indexing"
	"github.com/gcbaptista/go-geocode-keys/internal/logger"
	"github.com/gcbaptista/go-geocode-keys/internal/termops"
	"github.com/gcbaptista/go-geocode-keys/store"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "geokeys",
	Short: "geokeys - geocoder key space tools",
	Long: `geokeys computes and inspects the keys of a geocoder index: term IDs,
prefix degenerates, phrase IDs, tile IDs and UTF grid codes.

Examples:
  geokeys tokenize "Chamonix-Mont-Blanc"     # Show tokens and term IDs
  geokeys encode degens chamonix            # List prefix keys of a term
  geokeys index places.jsonl                # Index records into the data dir
  geokeys serve --port 9000                 # Start the inspection server`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads --config (or the defaults), applies --log-level and
// validates the result.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if conflicts := cfg.Validate(); len(conflicts) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(conflicts, "; "))
	}
	if !logger.SetLevel(cfg.Log.Level) {
		return nil, fmt.Errorf("invalid config: unknown log level %q", cfg.Log.Level)
	}
	return cfg, nil
}

// newLogger builds a component logger from the [log] table.
func newLogger(cfg *config.Config, prefix string) *log.Logger {
	return logger.NewWithConfig(prefix, log.GetLevel(), cfg.Log.Caller, cfg.Log.Timestamp, log.TextFormatter)
}

// newService wires an empty index for cfg.
func newService(cfg *config.Config, l *log.Logger) (*indexing.Service, error) {
	return indexing.NewService(
		termops.NewEncoder(cfg.Encoding, nil),
		index.NewCache(cfg.Index.ID, cfg.Index.ShardLevel),
		store.NewFeatureStore(cfg.Encoding.MaxLocalID()),
		l,
	)
}
