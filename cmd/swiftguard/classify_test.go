package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/swiftguard/internal/fetch"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/report"
)

const dealPage = `<!DOCTYPE html>
<html><head>
<title>Flash sale</title>
<meta property="og:title" content="Flash sale">
<meta property="og:description" content="Everything 90% off">
</head><body><p>hurry</p></body></html>`

func newDealSite(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(dealPage))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func decodeHistory(t *testing.T, out string) report.History {
	t.Helper()
	var h report.History
	if err := json.Unmarshal([]byte(out), &h); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	return h
}

func TestNewClassifyCmd(t *testing.T) {
	t.Parallel()

	cmd := NewClassifyCmd()
	for _, name := range []string{"snapshot", "batch", "json", "timeout", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if flag := cmd.Flags().Lookup("batch"); flag != nil && flag.Shorthand != "b" {
		t.Errorf("expected batch shorthand 'b', got %q", flag.Shorthand)
	}
}

func TestRunClassify(t *testing.T) {
	t.Parallel()

	t.Run("requires a url", func(t *testing.T) {
		t.Parallel()
		path, _ := writeConfig(t)
		if _, err := execute(t, "classify", "--config", path); err == nil {
			t.Error("expected error without arguments")
		}
	})

	t.Run("rejects non-positive batch", func(t *testing.T) {
		t.Parallel()
		path, _ := writeConfig(t)
		_, err := execute(t, "classify", "--config", path, "--batch", "0", "https://example.com/")
		if err == nil || !strings.Contains(err.Error(), "invalid batch size") {
			t.Errorf("expected batch size error, got %v", err)
		}
	})

	t.Run("missing snapshot file", func(t *testing.T) {
		t.Parallel()
		path, _ := writeConfig(t)
		_, err := execute(t, "classify", "--config", path, "--snapshot", filepath.Join(t.TempDir(), "none.png"), "https://example.com/")
		if err == nil || !strings.Contains(err.Error(), "failed to read snapshot") {
			t.Errorf("expected snapshot error, got %v", err)
		}
	})

	t.Run("unmatched page needs the model", func(t *testing.T) {
		t.Parallel()
		ts := newDealSite(t)
		path, _ := writeConfig(t)

		out, err := execute(t, "classify", "--config", path, "--json", ts.URL+"/deal")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		h := decodeHistory(t, out)
		if len(h.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(h.Records))
		}
		rec := h.Records[0]
		if rec.Pipeline != model.PipelinePrepass {
			t.Errorf("expected prepass pipeline, got %q", rec.Pipeline)
		}
		if rec.Reasoning != reasonNeedsModel {
			t.Errorf("expected reasoning %q, got %q", reasonNeedsModel, rec.Reasoning)
		}
		if rec.Key == "" {
			t.Error("expected a page key")
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		t.Parallel()
		ts := newDealSite(t)
		path, _ := writeConfig(t)

		out, err := execute(t, "classify", "--config", path, ts.URL+"/deal")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "# swiftguard history") {
			t.Errorf("expected markdown heading, got %q", out)
		}
	})

	t.Run("snapshot with unreachable model falls back to rules", func(t *testing.T) {
		t.Parallel()
		ts := newDealSite(t)
		path, _ := writeConfig(t)
		shot := filepath.Join(t.TempDir(), "shot.png")
		if err := os.WriteFile(shot, []byte("\x89PNG\r\n\x1a\n"), 0600); err != nil {
			t.Fatal(err)
		}

		out, err := execute(t, "classify", "--config", path, "--json", "--snapshot", shot, ts.URL+"/deal")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		h := decodeHistory(t, out)
		if len(h.Records) != 1 || h.Records[0].Reasoning != reasonNeedsModel {
			t.Errorf("expected rule fallback record, got %+v", h.Records)
		}
	})
}

func TestRuleRecord(t *testing.T) {
	t.Parallel()

	t.Run("chatbot host", func(t *testing.T) {
		t.Parallel()
		rec := ruleRecord(fetch.Page{URL: "https://chatgpt.com/", FinalURL: "https://chatgpt.com/c/1"})
		if rec.Verdict != model.VerdictChatbot {
			t.Errorf("expected Chatbot verdict, got %q", rec.Verdict)
		}
		if !rec.Pipeline.IsChatbot() {
			t.Errorf("expected chatbot pipeline, got %q", rec.Pipeline)
		}
		if rec.Reasoning != reasonRuleMatch {
			t.Errorf("expected reasoning %q, got %q", reasonRuleMatch, rec.Reasoning)
		}
	})

	t.Run("fetch error", func(t *testing.T) {
		t.Parallel()
		rec := ruleRecord(fetch.Page{URL: "https://down.example/", Err: errors.New("connection refused")})
		if rec.Key != "https://down.example/" {
			t.Errorf("expected url as key, got %q", rec.Key)
		}
		if rec.Verdict != model.VerdictError || rec.Reasoning != "connection refused" {
			t.Errorf("unexpected record %+v", rec.PageRecord)
		}
	})
}

func TestModelRecord(t *testing.T) {
	t.Parallel()

	t.Run("rescheduled page", func(t *testing.T) {
		t.Parallel()
		rec := modelRecord(engineResult("k", nil, nil))
		if rec.Verdict != model.VerdictRescan || rec.Reasoning != reasonRescheduled {
			t.Errorf("unexpected record %+v", rec.PageRecord)
		}
	})

	t.Run("failed page", func(t *testing.T) {
		t.Parallel()
		rec := modelRecord(engineResult("k", nil, errors.New("boom")))
		if rec.Verdict != model.VerdictError || rec.Reasoning != "boom" {
			t.Errorf("unexpected record %+v", rec.PageRecord)
		}
	})

	t.Run("stored record", func(t *testing.T) {
		t.Parallel()
		stored := &model.PageRecord{Status: model.StatusComplete, Verdict: model.VerdictScam}
		rec := modelRecord(engineResult("k", stored, nil))
		if rec.Key != "k" || rec.Verdict != model.VerdictScam {
			t.Errorf("unexpected record %+v", rec)
		}
	})
}
