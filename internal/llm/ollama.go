package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nao1215/swiftguard/internal/model"
)

// DefaultOllamaURL is the address of a local Ollama server.
const DefaultOllamaURL = "http://localhost:11434"

// Ollama is a Runtime backed by an Ollama server.
//
// The model is available when the server lists it, downloadable when the
// server is reachable but the model is missing, and downloading while a pull
// started by this runtime is running.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger

	pulling atomic.Bool
}

// OllamaOption configures an Ollama runtime.
type OllamaOption func(*Ollama)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) OllamaOption {
	return func(o *Ollama) {
		o.client = c
	}
}

// WithOllamaLogger sets the logger.
func WithOllamaLogger(logger *slog.Logger) OllamaOption {
	return func(o *Ollama) {
		o.logger = logger
	}
}

// NewOllama creates a runtime for modelName served at baseURL.
func NewOllama(baseURL, modelName string, opts ...OllamaOption) *Ollama {
	o := &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Model returns the configured model name.
func (o *Ollama) Model() string {
	return o.model
}

type ollamaTagsResp struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// Availability implements Runtime.
func (o *Ollama) Availability(ctx context.Context) (model.Availability, error) {
	if o.pulling.Load() {
		return model.AvailabilityDownloading, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return model.AvailabilityUnavailable, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return model.AvailabilityUnavailable, fmt.Errorf("ollama tags: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.AvailabilityUnavailable, fmt.Errorf("ollama tags: status %d", resp.StatusCode)
	}

	var tags ollamaTagsResp
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return model.AvailabilityUnavailable, fmt.Errorf("ollama tags decode: %w", err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, o.model) || sameModel(m.Model, o.model) {
			return model.AvailabilityAvailable, nil
		}
	}
	return model.AvailabilityDownloadable, nil
}

// sameModel compares model references, treating a missing tag as "latest".
func sameModel(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	withTag := func(s string) string {
		if strings.Contains(s, ":") {
			return s
		}
		return s + ":latest"
	}
	return withTag(a) == withTag(b)
}

// Create implements Runtime.
func (o *Ollama) Create(ctx context.Context, opts SessionOptions) (Session, error) {
	if opts.Monitor != nil {
		if err := o.pull(ctx, opts.Monitor); err != nil {
			return nil, err
		}
	}
	return &ollamaSession{runtime: o, opts: opts}, nil
}

type ollamaPullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
	Error     string `json:"error"`
}

// pull downloads the model and streams progress to monitor.
func (o *Ollama) pull(ctx context.Context, monitor func(float64)) error {
	if !o.pulling.CompareAndSwap(false, true) {
		return ErrModelBusy
	}
	defer o.pulling.Store(false)

	body, _ := json.Marshal(map[string]any{"model": o.model, "stream": true})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama pull: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama pull: status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p ollamaPullProgress
		if err := json.Unmarshal(line, &p); err != nil {
			continue
		}
		if p.Error != "" {
			return fmt.Errorf("ollama pull: %s", p.Error)
		}
		if p.Total > 0 {
			monitor(float64(p.Completed) / float64(p.Total))
		}
		if p.Status == "success" {
			monitor(1)
			return nil
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("ollama pull stream: %w", err)
	}
	return nil
}

type ollamaSession struct {
	runtime *Ollama
	opts    SessionOptions
}

type ollamaChatReq struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResp struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`
}

// Prompt implements Session.
func (s *ollamaSession) Prompt(ctx context.Context, p Prompt) (string, error) {
	o := s.runtime
	msg := ollamaChatMessage{Role: "user", Content: p.Text}
	if len(p.Image) > 0 {
		msg.Images = []string{base64.StdEncoding.EncodeToString(p.Image)}
	}
	body, _ := json.Marshal(ollamaChatReq{
		Model:    o.model,
		Messages: []ollamaChatMessage{msg},
		Stream:   false,
		Options: map[string]any{
			"temperature": s.opts.Temperature,
			"top_k":       s.opts.TopK,
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	var result ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ollama chat decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error != "" {
			return "", fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode, result.Error)
		}
		return "", fmt.Errorf("ollama chat: status %d", resp.StatusCode)
	}
	return result.Message.Content, nil
}
