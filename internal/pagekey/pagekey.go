// Package pagekey derives stable identities for visited pages.
package pagekey

import (
	"net/url"
	"strings"

	"github.com/nao1215/swiftguard/internal/metadata"
	"github.com/nao1215/swiftguard/internal/model"
)

// Derive returns the PageKey for a navigation. An og:url in the preview is
// returned verbatim; otherwise the raw URL without query and fragment.
func Derive(rawURL string, preview metadata.Preview) (string, model.KeySource) {
	if og := preview.CanonicalURL(); og != "" {
		return og, model.KeySourceOGURL
	}
	return StripVolatile(rawURL), model.KeySourceURL
}

// StripVolatile removes the query string and fragment from rawURL.
// Unparseable input is returned unchanged.
func StripVolatile(rawURL string) string {
	u, ok := parseAbsolute(rawURL)
	if !ok {
		return rawURL
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// CleanURL removes only the fragment. Unparseable input is returned unchanged.
func CleanURL(rawURL string) string {
	u, ok := parseAbsolute(rawURL)
	if !ok {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// MaskForPrompt prepares a URL for inclusion in a model prompt. Loopback
// hosts and unparseable input become ""; anything else loses its fragment.
func MaskForPrompt(rawURL string) string {
	u, ok := parseAbsolute(rawURL)
	if !ok {
		return ""
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return ""
	}
	return CleanURL(rawURL)
}

// IsHTTP reports whether rawURL uses the http or https scheme.
func IsHTTP(rawURL string) bool {
	u, ok := parseAbsolute(rawURL)
	return ok && (u.Scheme == "http" || u.Scheme == "https")
}

// parseAbsolute parses rawURL and normalizes it the way browsers do:
// lower-case scheme and host, and "/" as the path of a bare authority.
func parseAbsolute(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Host != "" {
		u.Host = strings.ToLower(u.Host)
		if u.Path == "" && u.Opaque == "" {
			u.Path = "/"
		}
	}
	return u, true
}
