package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/swiftguard/internal/metadata"
	"github.com/nao1215/swiftguard/internal/pagekey"
)

const (
	// DefaultTimeout bounds one page download.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a page is parsed.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "swiftguard/1.0 (+https://github.com/nao1215/swiftguard)"

	// DefaultConcurrency is the number of parallel downloads in FetchAll.
	DefaultConcurrency = 4
)

// ErrNotHTTP is returned for URLs that are not absolute http(s) URLs.
var ErrNotHTTP = errors.New("not an http(s) url")

// Page is one downloaded page.
type Page struct {
	// URL is the requested URL.
	URL string
	// FinalURL is the URL after redirects, as a browser tab would show it.
	FinalURL   string
	StatusCode int
	Preview    metadata.Preview
	Err        error
}

// Fetcher downloads pages and extracts their metadata.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithTimeout sets the per-request timeout of the client.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the body limit in bytes.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL. Non-2xx responses are still parsed; their status
// is reported in the Page.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	page := Page{URL: rawURL, FinalURL: rawURL}
	if !pagekey.IsHTTP(rawURL) {
		return page, fmt.Errorf("%w: %s", ErrNotHTTP, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return page, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return page, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	page.StatusCode = resp.StatusCode
	if resp.Request != nil && resp.Request.URL != nil {
		page.FinalURL = resp.Request.URL.String()
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") {
		return page, nil
	}

	preview, err := metadata.Extract(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return page, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	page.Preview = preview
	return page, nil
}

// FetchAll downloads urls with at most concurrency requests in flight.
// Per-page failures are stored in Page.Err; the returned error is only set
// when ctx is cancelled.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, concurrency int) ([]Page, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	pages := make([]Page, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range urls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := f.Fetch(ctx, u)
			p.Err = err
			pages[i] = p
			return nil
		})
	}
	return pages, g.Wait()
}
