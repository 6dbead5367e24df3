package prompt

import (
	"strings"
	"testing"

	"github.com/nao1215/swiftguard/internal/model"
)

func TestTemplatesRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		got      string
		contains []string
	}{
		{
			name:     "scam embeds url and title",
			got:      Scam("https://paypa1.example/login", "Sign in"),
			contains: []string{`URL: "https://paypa1.example/login"`, `Title: "Sign in"`, "_291aec"},
		},
		{
			name:     "prepass lists every label",
			got:      Prepass(),
			contains: []string{"BlogPost", "NewsArticle", "Other", "Ecommerce", "Rescan_291aec"},
		},
		{
			name:     "ecommerce embeds title",
			got:      Ecommerce("2TB USB Flash Drive"),
			contains: []string{"listing for 2TB USB Flash Drive.", "FlashDriveScam", "Rescan_291aec"},
		},
		{
			name:     "news asks for markers",
			got:      News(),
			contains: []string{"PHRASES_START_21093a", "PHRASES_END_21093a", "HEADLINE_START_21093a", "HEADLINE_END_21093a"},
		},
		{
			name:     "promptguard wraps message",
			got:      PromptGuard("my ssn is 123-45-6789"),
			contains: []string{"<MESSAGE_1089af>\nmy ssn is 123-45-6789\n</MESSAGE_1089af>", "Placeholded_291aec"},
		},
		{
			name:     "distress wraps message",
			got:      Distress("nobody likes me"),
			contains: []string{"nobody likes me", "SEPARATOR_VERDICT_291aec"},
		},
		{
			name:     "social asks for separator",
			got:      Social(),
			contains: []string{"SEPARATOR_VERDICT_291aec", "Cleared_291aec"},
		},
		{
			name:     "translate names language",
			got:      Translate("Japanese", "This page is a scam."),
			contains: []string{"into Japanese.", "This page is a scam."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			for _, want := range tt.contains {
				if !strings.Contains(tt.got, want) {
					t.Errorf("rendered prompt is missing %q", want)
				}
			}
		})
	}
}

func TestNewsVerdict(t *testing.T) {
	t.Parallel()

	t.Run("lists reviews separated by dashes", func(t *testing.T) {
		t.Parallel()

		got := NewsVerdict("Moon made of cheese", []model.Review{
			{PublisherName: "Snopes", PublisherSite: "snopes.com", Title: "No, it is not", URL: "https://snopes.com/a"},
			{PublisherName: "AFP", PublisherSite: "afp.com", Title: "False claim", URL: "https://afp.com/b"},
		})

		want := "Publisher: Snopes (snopes.com)\nTitle: No, it is not\nURL: https://snopes.com/a\n---\nPublisher: AFP (afp.com)"
		if !strings.Contains(got, want) {
			t.Errorf("review block not rendered as expected:\n%s", got)
		}
		if !strings.Contains(got, `titled "Moon made of cheese"`) {
			t.Error("headline missing")
		}
		if strings.Contains(got, "&") {
			t.Error("text templates must not escape")
		}
	})

	t.Run("truncates long headlines", func(t *testing.T) {
		t.Parallel()

		got := NewsVerdict(strings.Repeat("あ", 400), nil)
		if strings.Contains(got, strings.Repeat("あ", 301)) {
			t.Error("headline longer than 300 characters")
		}
		if !strings.Contains(got, strings.Repeat("あ", 300)) {
			t.Error("headline shorter than expected")
		}
	})
}
