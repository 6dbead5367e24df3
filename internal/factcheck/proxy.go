package factcheck

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Proxy defaults.
const (
	// DefaultUpstreamURL is the Google Fact Check Tools claim search endpoint.
	DefaultUpstreamURL = "https://factchecktools.googleapis.com/v1alpha1/claims:search"

	// DefaultExtensionKey is accepted when no extension key is configured.
	DefaultExtensionKey = "default-secret-key"

	// DefaultUpstreamTimeout bounds one upstream call.
	DefaultUpstreamTimeout = 10 * time.Second

	// maxUpstreamBody caps the forwarded response.
	maxUpstreamBody = 4 << 20
)

// ProxyConfig configures a Proxy.
type ProxyConfig struct {
	// UpstreamURL is the claim search endpoint.
	UpstreamURL string
	// UpstreamKey is the Google API key appended as the key parameter.
	UpstreamKey string
	// ExtensionKey must match the X-API-Key header of every request.
	ExtensionKey string
	// Timeout bounds one upstream call.
	Timeout time.Duration
	// Client overrides the instrumented default HTTP client.
	Client *http.Client
	Logger *slog.Logger
}

// Proxy forwards claim searches to the upstream API.
type Proxy struct {
	cfg    ProxyConfig
	client *http.Client
	logger *slog.Logger
}

// NewProxy creates a Proxy, filling defaults for empty fields.
func NewProxy(cfg ProxyConfig) *Proxy {
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = DefaultUpstreamURL
	}
	if cfg.ExtensionKey == "" {
		cfg.ExtensionKey = DefaultExtensionKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultUpstreamTimeout
	}
	p := &Proxy{cfg: cfg, client: cfg.Client, logger: cfg.Logger}
	if p.client == nil {
		p.client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if cfg.UpstreamKey == "" {
		p.logger.Warn("fact-check upstream api key is not set")
	}
	return p
}

// Handler returns the proxy routes: GET /factcheck and GET /health.
func (p *Proxy) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /factcheck", p.handleFactCheck)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (p *Proxy) handleFactCheck(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(APIKeyHeader) != p.cfg.ExtensionKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}
	query := r.URL.Query().Get("query")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing query parameter"})
		return
	}

	status, body, err := p.forward(r.Context(), query)
	if err != nil {
		p.logger.Error("upstream fact-check request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// forward calls the upstream API and returns its status and JSON body.
func (p *Proxy) forward(ctx context.Context, query string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	u, err := url.Parse(p.cfg.UpstreamURL)
	if err != nil {
		return 0, nil, err
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("key", p.cfg.UpstreamKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return 0, nil, err
	}
	if !json.Valid(body) {
		return 0, nil, ErrLookupFailure
	}
	return resp.StatusCode, body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
