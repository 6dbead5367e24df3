package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/swiftguard/internal/config"
	"github.com/nao1215/swiftguard/internal/model"
)

// seedHistory stores one page record and one Family Center entry in the
// database configured by path.
func seedHistory(t *testing.T, path string) {
	t.Helper()
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	kv, store, err := openStore(cfg, discardLogger(), true)
	if err != nil {
		t.Fatalf("openStore() = %v", err)
	}
	defer kv.Close()

	ctx := context.Background()
	_, err = store.Update(ctx, "https://shop.example/item", func(rec *model.PageRecord) {
		rec.Status = model.StatusComplete
		rec.Verdict = model.VerdictScam
		rec.Pipeline = model.PipelineScam
		rec.Reasoning = "Too good to be true"
		rec.Timestamp = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("Update() = %v", err)
	}
	store.AppendFamilyCenterLog(ctx, model.FamilyCenterLogEntry{
		Platform:  "chatgpt",
		Message:   "where do you live",
		Analysis:  "asks for location",
		Flagged:   true,
		Timestamp: time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC),
	})
}

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	if cmd.Use != "history" {
		t.Errorf("expected Use to be 'history', got %q", cmd.Use)
	}
	flag := cmd.Flags().Lookup("output")
	if flag == nil || flag.Shorthand != "o" {
		t.Errorf("output flag = %+v", flag)
	}
	if cmd.Flags().Lookup("json") == nil {
		t.Error("expected json flag")
	}
}

func TestRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("missing database", func(t *testing.T) {
		t.Parallel()
		path, _ := writeConfig(t)
		_, err := execute(t, "history", "--config", path)
		if err == nil || !strings.Contains(err.Error(), "no history found") {
			t.Errorf("expected 'no history found' error, got %v", err)
		}
	})

	t.Run("json to stdout", func(t *testing.T) {
		t.Parallel()
		path, _ := writeConfig(t)
		seedHistory(t, path)

		out, err := execute(t, "history", "--config", path, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		h := decodeHistory(t, out)
		if len(h.Records) != 1 || h.Records[0].Key != "https://shop.example/item" {
			t.Fatalf("unexpected records %+v", h.Records)
		}
		if h.Records[0].Verdict != model.VerdictScam {
			t.Errorf("expected Scam verdict, got %q", h.Records[0].Verdict)
		}
		if len(h.FamilyCenterLogs) != 1 || !h.FamilyCenterLogs[0].Flagged {
			t.Errorf("unexpected family logs %+v", h.FamilyCenterLogs)
		}
	})

	t.Run("db-dir flag overrides config", func(t *testing.T) {
		t.Parallel()
		seeded, dbDir := writeConfig(t)
		seedHistory(t, seeded)
		other, _ := writeConfig(t)

		out, err := execute(t, "history", "--config", other, "--db-dir", dbDir, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h := decodeHistory(t, out); len(h.Records) != 1 {
			t.Errorf("expected 1 record, got %d", len(h.Records))
		}
	})

	t.Run("markdown to file", func(t *testing.T) {
		t.Parallel()
		path, _ := writeConfig(t)
		seedHistory(t, path)
		outputPath := filepath.Join(t.TempDir(), "reports", "history.md")

		out, err := execute(t, "history", "--config", path, "-o", outputPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "History written to "+outputPath) {
			t.Errorf("unexpected stdout %q", out)
		}
		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		for _, want := range []string{"## Pages", "shop.example", "## Family Center"} {
			if !strings.Contains(string(content), want) {
				t.Errorf("expected %q in history file", want)
			}
		}
	})
}
