package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/nao1215/swiftguard/internal/config"
)

// Set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// shortCommitLen is how much of the VCS revision is shown.
const shortCommitLen = 7

// build describes the running binary.
type build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	Model   string `json:"defaultModel"`
}

// currentBuild prefers the ldflags values and falls back to the module
// build info, then to placeholders.
func currentBuild() build {
	b := build{
		Version: version,
		Commit:  commit,
		Date:    date,
		Go:      runtime.Version(),
		Model:   config.DefaultModel,
	}

	info, ok := debug.ReadBuildInfo()
	if ok {
		if b.Version == "" && info.Main.Version != "" {
			b.Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && b.Commit == "":
				b.Commit = s.Value
			case s.Key == "vcs.time" && b.Date == "":
				b.Date = s.Value
			}
		}
	}

	if b.Version == "" {
		b.Version = "(devel)"
	}
	if len(b.Commit) > shortCommitLen {
		b.Commit = b.Commit[:shortCommitLen]
	}
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}

func getVersion() string {
	return currentBuild().Version
}

func (b build) writeText(w io.Writer) {
	fmt.Fprintf(w, "swiftguard version %s\n", b.Version)
	fmt.Fprintf(w, "  commit:        %s\n", b.Commit)
	fmt.Fprintf(w, "  built:         %s\n", b.Date)
	fmt.Fprintf(w, "  go:            %s\n", b.Go)
	fmt.Fprintf(w, "  default model: %s\n", b.Model)
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit, build date and Go toolchain of swiftguard,
together with the model it classifies with unless configured otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := currentBuild()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(b)
			}
			b.writeText(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output JSON")
	return cmd
}
