package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	swlog "github.com/nao1215/swiftguard/internal/log"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the classification service for the browser extension",
		Long: `Serve runs the dispatch API the browser extension talks to.

Routes:
  POST /v1/dispatch   popup and shell actions
  GET  /v1/events     notification stream (server-sent events)
  GET  /metrics       Prometheus metrics
  GET  /healthz       liveness

Page records, logs and settings are kept in swiftguard.db in the data
directory. Stop with Ctrl-C.`,
		RunE: runServe,
	}
	cmd.Flags().String("listen", "", "Listen address (overrides the config file)")
	addDBDirFlag(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}

	logger := swlog.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	logger.Info("starting swiftguard",
		"version", getVersion(),
		"db", a.kv.Path(),
		"config", cfg.ConfigFilePath,
	)
	return a.run(ctx)
}
