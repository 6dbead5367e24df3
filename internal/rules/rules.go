// Package rules implements the deterministic host/path prepass that picks a
// pipeline without consulting the model.
package rules

import (
	"net/url"
	"strings"

	"github.com/nao1215/swiftguard/internal/metadata"
	"github.com/nao1215/swiftguard/internal/model"
)

var (
	// excludedHosts are skipped entirely, except for the search engine's
	// chatbot assistant. Any *.google.com host is excluded as well; the bare
	// google.com host is not.
	excludedHosts = []string{"bing.com", "microsoft.com", "gmail.com"}

	// ebayHosts only route item pages to the ecommerce pipeline.
	ebayHosts = []string{"ebay.com", "ebay.com.sg"}

	ecommerceHosts = []string{"amazon.com", "shopee.com", "shopee.sg", "craigslist.org", "aliexpress.com"}

	socialHosts = []string{"tiktok.com", "facebook.com", "twitter.com", "x.com", "instagram.com"}
)

// Classify maps a URL and its preview metadata to a pipeline. The boolean
// is false when no rule matched (including unparseable URLs) and the caller
// must fall back to the model prepass.
//
// Rules are evaluated in order and the first match wins. Host suffixes are
// matched on the raw string, so "notebay.com" matches "ebay.com".
func Classify(rawURL string, preview metadata.Preview) (model.Pipeline, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return model.PipelineExclude, true
	}
	host := strings.ToLower(u.Hostname())

	if strings.HasSuffix(host, ".google.com") || hasAnySuffix(host, excludedHosts) {
		if (host == "google.com" || strings.HasSuffix(host, ".google.com")) && preview.ContainsMeetAIMode {
			return model.ChatbotPipeline(model.ChatbotGoogle), true
		}
		return model.PipelineExclude, true
	}

	if hasAnySuffix(host, ebayHosts) {
		if strings.Contains(u.Path, "/itm/") {
			return model.PipelineEcommerce, true
		}
		return model.PipelineExclude, true
	}

	if hasAnySuffix(host, ecommerceHosts) {
		return model.PipelineEcommerce, true
	}

	if hasAnySuffix(host, socialHosts) {
		if strings.Contains(host, "instagram.com") && strings.Contains(u.Path, "/p/") {
			return model.PipelineSocialInstagramPost, true
		}
		return model.PipelineSocial, true
	}

	switch {
	case strings.Contains(host, "chatgpt.com"):
		return model.ChatbotPipeline(model.ChatbotChatGPT), true
	case strings.Contains(host, "claude.ai"):
		return model.ChatbotPipeline(model.ChatbotClaude), true
	}

	return "", false
}

func hasAnySuffix(host string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}
