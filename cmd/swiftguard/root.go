package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for swiftguard.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swiftguard",
		Short: "Page safety classification with a local language model",
		Long: `swiftguard decides whether the pages a browser shows are scams,
risky shops, questionable news or chatbot pages, and screens chatbot
messages for leaked personal data or signs of distress.

The browser extension talks to "swiftguard serve" over HTTP. Models run
in a local Ollama server unless cloud inference is configured.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file (default: ./.swiftguard or ~/.swiftguard)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewProxyCmd())
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
