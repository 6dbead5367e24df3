package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/nao1215/swiftguard/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// maxHeadlineRunes bounds the headline quoted in the news verdict prompt.
const maxHeadlineRunes = 300

// Scam renders the scam detection prompt for a page.
// url should already be masked with pagekey.MaskForPrompt.
func Scam(url, title string) string {
	return mustRender("scam.tmpl", struct{ URL, Title string }{url, title})
}

// Prepass renders the page-type prepass prompt.
func Prepass() string {
	return mustRender("prepass.tmpl", nil)
}

// Ecommerce renders the marketplace listing prompt.
func Ecommerce(title string) string {
	return mustRender("ecommerce.tmpl", struct{ Title string }{title})
}

// News renders the search-phrase and headline extraction prompt.
func News() string {
	return mustRender("news.tmpl", nil)
}

// NewsVerdict renders the second-stage prompt that weighs fact-check reviews
// against a headline. The headline is cut to 300 characters.
func NewsVerdict(headline string, reviews []model.Review) string {
	if r := []rune(headline); len(r) > maxHeadlineRunes {
		headline = string(r[:maxHeadlineRunes])
	}
	return mustRender("news_verdict.tmpl", struct {
		Headline string
		Reviews  []model.Review
	}{headline, reviews})
}

// PromptGuard renders the sensitive-data leak prompt for an outgoing message.
func PromptGuard(message string) string {
	return mustRender("promptguard.tmpl", struct{ Message string }{message})
}

// Distress renders the distress screening prompt for an outgoing message.
func Distress(message string) string {
	return mustRender("distress.tmpl", struct{ Message string }{message})
}

// Social renders the harmful-content prompt for a photo post.
func Social() string {
	return mustRender("social.tmpl", nil)
}

// Translate renders a translation prompt for runtimes without a native translator.
func Translate(language, text string) string {
	return mustRender("translate.tmpl", struct{ Language, Text string }{language, text})
}

// mustRender executes a parsed template. The templates are fixed at build
// time and only take strings, so execution cannot fail at run time.
func mustRender(name string, data any) string {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		panic(fmt.Sprintf("prompt: render %s: %v", name, err))
	}
	return buf.String()
}
