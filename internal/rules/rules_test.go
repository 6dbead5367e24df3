package rules

import (
	"testing"

	"github.com/nao1215/swiftguard/internal/metadata"
	"github.com/nao1215/swiftguard/internal/model"
)

// TestClassify tests the rule table.
func TestClassify(t *testing.T) {
	t.Parallel()

	marker := metadata.Preview{ContainsMeetAIMode: true}

	testCases := []struct {
		name      string
		url       string
		preview   metadata.Preview
		want      model.Pipeline
		wantMatch bool
	}{
		{"non-http scheme", "chrome://settings", metadata.Preview{}, model.PipelineExclude, true},
		{"ftp scheme", "ftp://files.example.com/a", metadata.Preview{}, model.PipelineExclude, true},
		{"google subdomain excluded", "https://www.google.com/search?q=x", metadata.Preview{}, model.PipelineExclude, true},
		{"google with ai mode marker", "https://www.google.com/search?q=x", marker, model.ChatbotPipeline(model.ChatbotGoogle), true},
		{"bare google is not excluded", "https://google.com/", marker, "", false},
		{"bing excluded even with marker", "https://www.bing.com/", marker, model.PipelineExclude, true},
		{"gmail excluded", "https://gmail.com/inbox", metadata.Preview{}, model.PipelineExclude, true},
		{"microsoft excluded", "https://learn.microsoft.com/x", metadata.Preview{}, model.PipelineExclude, true},
		{"ebay item page", "https://www.ebay.com/itm/12345", metadata.Preview{}, model.PipelineEcommerce, true},
		{"ebay seller page", "https://www.ebay.com/usr/someSeller", metadata.Preview{}, model.PipelineExclude, true},
		{"ebay sg item page", "https://www.ebay.com.sg/itm/9", metadata.Preview{}, model.PipelineEcommerce, true},
		{"amazon", "https://www.amazon.com/dp/B0", metadata.Preview{}, model.PipelineEcommerce, true},
		{"shopee sg", "https://shopee.sg/product/1", metadata.Preview{}, model.PipelineEcommerce, true},
		{"craigslist", "https://sfbay.craigslist.org/a", metadata.Preview{}, model.PipelineEcommerce, true},
		{"aliexpress", "https://www.aliexpress.com/item/1.html", metadata.Preview{}, model.PipelineEcommerce, true},
		{"instagram post", "https://www.instagram.com/p/Cxyz/", metadata.Preview{}, model.PipelineSocialInstagramPost, true},
		{"instagram profile", "https://www.instagram.com/someone/", metadata.Preview{}, model.PipelineSocial, true},
		{"tiktok", "https://www.tiktok.com/@a/video/1", metadata.Preview{}, model.PipelineSocial, true},
		{"x.com", "https://x.com/home", metadata.Preview{}, model.PipelineSocial, true},
		{"facebook", "https://m.facebook.com/", metadata.Preview{}, model.PipelineSocial, true},
		{"chatgpt", "https://chatgpt.com/c/abc", metadata.Preview{}, model.ChatbotPipeline(model.ChatbotChatGPT), true},
		{"claude", "https://claude.ai/new", metadata.Preview{}, model.ChatbotPipeline(model.ChatbotClaude), true},
		{"unknown host", "https://blog.example.org/post", metadata.Preview{}, "", false},
		{"unparseable", "http://[::1", metadata.Preview{}, "", false},
		{"relative", "/just/a/path", metadata.Preview{}, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Classify(tc.url, tc.preview)
			if ok != tc.wantMatch {
				t.Fatalf("match = %v, want %v", ok, tc.wantMatch)
			}
			if got != tc.want {
				t.Errorf("Classify(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

// TestClassifyIsDeterministic tests that repeated calls agree.
func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	for range 3 {
		got, ok := Classify("https://www.ebay.com/itm/12345", metadata.Preview{})
		if !ok || got != model.PipelineEcommerce {
			t.Fatalf("got %q, %v", got, ok)
		}
	}
}
