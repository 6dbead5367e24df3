package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/swiftguard/internal/config"
	"github.com/nao1215/swiftguard/internal/engine"
	"github.com/nao1215/swiftguard/internal/model"
)

// unreachableModel refuses connections, so availability checks fail fast.
const unreachableModel = "http://127.0.0.1:1"

// writeConfig writes a config file whose database lives in a fresh
// directory and returns the file path and that directory.
func writeConfig(t *testing.T, extra ...string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbDir := filepath.Join(dir, "data")
	lines := append([]string{
		"db_dir: " + dbDir,
		"ollama_url: " + unreachableModel,
		`factcheck_url: ""`,
		"grace_period: 0s",
	}, extra...)
	path := filepath.Join(dir, "swiftguard.yaml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path, dbDir
}

// testConfig loads the file written by writeConfig.
func testConfig(t *testing.T, extra ...string) *config.Config {
	t.Helper()
	path, _ := writeConfig(t, extra...)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	return cfg
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func engineResult(key string, rec *model.PageRecord, err error) engine.Result {
	return engine.Result{Request: engine.Request{Key: key}, Record: rec, Err: err}
}
