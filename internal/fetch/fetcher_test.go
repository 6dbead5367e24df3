package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const shopPage = `<!doctype html><html><head>
<title>Flash Deals</title>
<meta property="og:url" content="https://shop.example/deal">
<meta property="og:title" content="2TB flash drive for $9">
</head><body>buy now</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/deal", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			http.Error(w, "bad agent", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, shopPage)
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/deal", http.StatusFound)
	})
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Not here"></head></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	f := New(WithHTTPClient(srv.Client()))

	t.Run("extracts metadata", func(t *testing.T) {
		t.Parallel()
		p, err := f.Fetch(context.Background(), srv.URL+"/deal")
		if err != nil {
			t.Fatalf("Fetch() = %v", err)
		}
		if p.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d", p.StatusCode)
		}
		if p.Preview.CanonicalURL() != "https://shop.example/deal" {
			t.Errorf("CanonicalURL = %q", p.Preview.CanonicalURL())
		}
		if p.Preview.Get("og:title") != "2TB flash drive for $9" {
			t.Errorf("og:title = %q", p.Preview.Get("og:title"))
		}
	})

	t.Run("follows redirects", func(t *testing.T) {
		t.Parallel()
		p, err := f.Fetch(context.Background(), srv.URL+"/old")
		if err != nil {
			t.Fatalf("Fetch() = %v", err)
		}
		if p.URL != srv.URL+"/old" || p.FinalURL != srv.URL+"/deal" {
			t.Errorf("URL = %q, FinalURL = %q", p.URL, p.FinalURL)
		}
	})

	t.Run("non html body is not parsed", func(t *testing.T) {
		t.Parallel()
		p, err := f.Fetch(context.Background(), srv.URL+"/image.png")
		if err != nil {
			t.Fatalf("Fetch() = %v", err)
		}
		if len(p.Preview.Fields) != 0 {
			t.Errorf("Fields = %v, want none", p.Preview.Fields)
		}
	})

	t.Run("error status is still parsed", func(t *testing.T) {
		t.Parallel()
		p, err := f.Fetch(context.Background(), srv.URL+"/gone")
		if err != nil {
			t.Fatalf("Fetch() = %v", err)
		}
		if p.StatusCode != http.StatusNotFound || p.Preview.Get("og:title") != "Not here" {
			t.Errorf("page = %+v", p)
		}
	})

	t.Run("rejects non http urls", func(t *testing.T) {
		t.Parallel()
		_, err := f.Fetch(context.Background(), "chrome://settings")
		if !errors.Is(err, ErrNotHTTP) {
			t.Errorf("Fetch() = %v, want ErrNotHTTP", err)
		}
	})
}

func TestFetchAll(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	f := New(WithHTTPClient(srv.Client()))

	urls := []string{srv.URL + "/deal", "ftp://example.com/", srv.URL + "/gone"}
	pages, err := f.FetchAll(context.Background(), urls, 2)
	if err != nil {
		t.Fatalf("FetchAll() = %v", err)
	}
	if len(pages) != len(urls) {
		t.Fatalf("got %d pages", len(pages))
	}
	for i, p := range pages {
		if p.URL != urls[i] {
			t.Errorf("pages[%d].URL = %q, want request order", i, p.URL)
		}
	}
	if pages[0].Err != nil || pages[2].Err != nil {
		t.Errorf("unexpected errors: %v, %v", pages[0].Err, pages[2].Err)
	}
	if pages[1].Err == nil || !strings.Contains(pages[1].Err.Error(), "ftp://") {
		t.Errorf("pages[1].Err = %v", pages[1].Err)
	}
}

func TestFetchAllCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().FetchAll(ctx, []string{"https://example.com/"}, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("FetchAll() = %v, want context.Canceled", err)
	}
}
