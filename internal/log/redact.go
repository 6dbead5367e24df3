package log

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// BodyPrefixLen is how many runes of a chat body are kept.
const BodyPrefixLen = 16

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"proxy-authorization": true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"factcheck_api_key":   true,
	"upstream_key":        true,
	"extension_key":       true,
	"session":             true,
	"session_id":          true,
	"sid":                 true,
	"uid":                 true,
}

// sensitiveKeywords mask any key containing them. The bare word "key" is
// not one of them: page keys are logged under "key".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private",
}

// bodyKeys hold text typed by the user.
var bodyKeys = map[string]bool{
	"message":        true,
	"messagepreview": true,
	"prompt":         true,
	"preview":        true,
	"text":           true,
}

// sensitiveValues mask the whole value when it matches.
var sensitiveValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// inlineSecrets are masked where they occur inside a longer value.
var inlineSecrets = []*regexp.Regexp{
	regexp.MustCompile(`\b(sk|pk|rk)_(live|test)_[A-Za-z0-9]{4,}`),
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{8,}`),
	regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if sensitiveKeys[k] {
		return true
	}
	return containsSensitiveKeyword(k)
}

func containsSensitiveKeyword(key string) bool {
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func isBodyKey(key string) bool {
	return bodyKeys[strings.ToLower(key)]
}

func isSensitiveValue(value string) bool {
	for _, re := range sensitiveValues {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// maskInline replaces embedded secrets in s.
func maskInline(s string) string {
	for _, re := range inlineSecrets {
		s = re.ReplaceAllString(s, MaskValue)
	}
	return s
}

// shortenBody keeps the first BodyPrefixLen runes of a chat body.
func shortenBody(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= BodyPrefixLen {
		return maskInline(s)
	}
	r := []rune(s)
	return fmt.Sprintf("%s... (%d chars)", maskInline(string(r[:BodyPrefixLen])), n)
}
