package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/nao1215/swiftguard/internal/model"
)

func newOllamaServer(t *testing.T, models []string, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, _ *http.Request) {
		type entry struct {
			Name string `json:"name"`
		}
		var resp struct {
			Models []entry `json:"models"`
		}
		for _, m := range models {
			resp.Models = append(resp.Models, entry{Name: m})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	if handler != nil {
		mux.HandleFunc("/", handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaAvailability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		models []string
		model  string
		want   model.Availability
	}{
		{"listed with tag", []string{"gemma3:4b"}, "gemma3:4b", model.AvailabilityAvailable},
		{"implicit latest", []string{"llava:latest"}, "llava", model.AvailabilityAvailable},
		{"missing model", []string{"llama3:8b"}, "gemma3:4b", model.AvailabilityDownloadable},
		{"empty server", nil, "gemma3:4b", model.AvailabilityDownloadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newOllamaServer(t, tt.models, nil)
			got, err := NewOllama(srv.URL, tt.model).Availability(context.Background())
			if err != nil {
				t.Fatalf("Availability() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Availability() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		got, err := NewOllama(url, "gemma3:4b").Availability(context.Background())
		if err == nil {
			t.Error("expected error")
		}
		if got != model.AvailabilityUnavailable {
			t.Errorf("Availability() = %v", got)
		}
	})
}

func TestOllamaPrompt(t *testing.T) {
	t.Parallel()

	requests := make(chan ollamaChatReq, 1)
	srv := newOllamaServer(t, []string{"gemma3:4b"}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ollamaChatReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		requests <- req
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"Benign_291aec"},"done":true}`)
	})

	rt := NewOllama(srv.URL, "gemma3:4b")
	s, err := rt.Create(context.Background(), SessionOptions{Temperature: 0.25, TopK: 3, ExpectImage: true})
	if err != nil {
		t.Fatal(err)
	}
	text, err := s.Prompt(context.Background(), Prompt{Text: "classify", Image: []byte{0x89, 'P', 'N', 'G'}})
	if err != nil {
		t.Fatalf("Prompt() error = %v", err)
	}
	if text != "Benign_291aec" {
		t.Errorf("Prompt() = %q", text)
	}

	got := <-requests
	if got.Model != "gemma3:4b" || got.Stream {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "classify" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if want := base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}); !slices.Equal(got.Messages[0].Images, []string{want}) {
		t.Errorf("images = %v", got.Messages[0].Images)
	}
	if got.Options["top_k"] != float64(3) || got.Options["temperature"] != 0.25 {
		t.Errorf("options = %v", got.Options)
	}
}

func TestOllamaPromptError(t *testing.T) {
	t.Parallel()

	srv := newOllamaServer(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model not found"}`)
	})

	s, _ := NewOllama(srv.URL, "x").Create(context.Background(), SessionOptions{})
	if _, err := s.Prompt(context.Background(), Prompt{Text: "hi"}); err == nil {
		t.Error("expected error")
	}
}

func TestOllamaPull(t *testing.T) {
	t.Parallel()

	srv := newOllamaServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			http.NotFound(w, r)
			return
		}
		for _, line := range []string{
			`{"status":"pulling manifest"}`,
			`{"status":"downloading","total":200,"completed":50}`,
			`{"status":"downloading","total":200,"completed":200}`,
			`{"status":"success"}`,
		} {
			fmt.Fprintln(w, line)
		}
	})

	var ticks []float64
	if _, err := NewOllama(srv.URL, "gemma3:4b").Create(context.Background(), SessionOptions{
		Monitor: func(f float64) { ticks = append(ticks, f) },
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !slices.Equal(ticks, []float64{0.25, 1, 1}) {
		t.Errorf("ticks = %v", ticks)
	}
}

func TestOllamaPullError(t *testing.T) {
	t.Parallel()

	srv := newOllamaServer(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"error":"pull model manifest: file does not exist"}`)
	})

	_, err := NewOllama(srv.URL, "nope").Create(context.Background(), SessionOptions{Monitor: func(float64) {}})
	if err == nil {
		t.Error("expected error")
	}
}
