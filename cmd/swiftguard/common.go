package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/swiftguard/internal/cache"
	"github.com/nao1215/swiftguard/internal/config"
	"github.com/nao1215/swiftguard/internal/database"
	swlog "github.com/nao1215/swiftguard/internal/log"
)

// loadConfig reads the --config file and the environment, applies the
// --verbose and --db-dir flags and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	cfg.Verbose = verbose

	if f := cmd.Flags().Lookup("db-dir"); f != nil && f.Changed {
		cfg.DBDir = f.Value.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger returns the text logger used by one-shot commands.
func newLogger(cfg *config.Config) *slog.Logger {
	return swlog.NewSecureLogger(os.Stderr, cfg.Verbose)
}

// openStore opens the sqlite database in cfg.DBDir and wraps it in a record
// cache. Close the returned KV when done.
func openStore(cfg *config.Config, logger *slog.Logger, create bool) (*database.KV, *cache.Store, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create
	kv, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		return nil, nil, err
	}
	store := cache.New(kv,
		cache.WithLogger(logger),
		cache.WithLLMLogLimit(cfg.LLMLogLimit),
		cache.WithFamilyLogLimit(cfg.FamilyLogLimit),
	)
	return kv, store, nil
}

// addDBDirFlag registers --db-dir on cmd.
func addDBDirFlag(cmd *cobra.Command) {
	cmd.Flags().String("db-dir", "", "Database directory (default: XDG data directory)")
}
