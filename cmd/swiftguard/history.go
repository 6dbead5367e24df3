package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/swiftguard/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored page verdicts and screening logs",
		Long: `History prints every stored page record together with the model response
log and the Family Center log.

Examples:
  # Markdown to stdout
  swiftguard history

  # JSON to a file
  swiftguard history --json -o history.json`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
	cmd.Flags().Bool("json", false, "Output JSON instead of Markdown")
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	addDBDirFlag(cmd)
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	asJSON, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")

	kv, store, err := openStore(cfg, logger, false)
	if err != nil {
		return fmt.Errorf("no history found: %w", err)
	}
	defer kv.Close()

	h, err := report.Collect(cmd.Context(), store, time.Now())
	if err != nil {
		return err
	}

	if outputPath == "" {
		return writeHistory(cmd.OutOrStdout(), h, asJSON)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	if err := writeHistory(f, h, asJSON); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "History written to %s\n", outputPath)
	return nil
}
