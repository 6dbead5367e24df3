package interceptor

import (
	"net/url"
	"strings"

	"github.com/nao1215/swiftguard/internal/metadata"
	"github.com/nao1215/swiftguard/internal/model"
)

// Platforms whose send action can be intercepted.
const (
	PlatformChatGPT  = "chatgpt"
	PlatformGoogleAI = "google-ai"
)

// DetectPlatform returns the interceptable platform rawURL belongs to, or
// "" when the page is not a supported chatbot. Google only counts while
// its AI mode is shown.
func DetectPlatform(rawURL string, preview metadata.Preview) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "chatgpt.com"):
		return PlatformChatGPT
	case strings.Contains(host, "google.com") && preview.ContainsMeetAIMode:
		return PlatformGoogleAI
	default:
		return ""
	}
}

// PlatformFor maps a chatbot vendor to its interceptable platform.
func PlatformFor(chatbotType string) string {
	switch chatbotType {
	case model.ChatbotChatGPT:
		return PlatformChatGPT
	case model.ChatbotGoogle:
		return PlatformGoogleAI
	default:
		return ""
	}
}
