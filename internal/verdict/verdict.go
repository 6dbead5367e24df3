package verdict

import (
	"regexp"
	"strings"

	"github.com/nao1215/swiftguard/internal/model"
)

// Token markers shared with the prompt templates.
const (
	// Suffix tags single-word labels such as Scam_291aec.
	Suffix = "_291aec"
	// Separator splits reasoning from the verdict in two-section answers.
	Separator = "SEPARATOR_VERDICT_291aec"

	cleared     = "Cleared" + Suffix
	placeholded = "Placeholded" + Suffix
	detected    = "Detected" + Suffix
)

var (
	scamToken      = regexp.MustCompile(`(Scam|Marketing|Uncertain|Benign)_291aec`)
	ecommerceToken = regexp.MustCompile(`(Safe|HighRiskScam|Warning|Uncertain|FlashDriveScam|Rescan)_291aec`)
	prepassToken   = regexp.MustCompile(`(?i)(BlogPost|NewsArticle|Other|Rescan|Ecommerce)_291aec`)
	anyToken       = regexp.MustCompile(`(\w+)_291aec`)
	detectedTail   = regexp.MustCompile(`Detected_291aec.*$`)
)

// Labeled is a single-word verdict with the reasoning that preceded it.
type Labeled struct {
	Verdict   model.Verdict
	Reasoning string
}

// Scam parses a scam-detection answer. Without a token the verdict is Error.
func Scam(text string) Labeled {
	v := model.VerdictError
	if m := scamToken.FindStringSubmatch(text); m != nil {
		v = model.Verdict(m[1])
	}
	return Labeled{Verdict: v, Reasoning: stripFirstToken(text)}
}

// Ecommerce parses a listing answer. Without a token the verdict is Uncertain.
// FlashDriveScam is reported as Warning.
func Ecommerce(text string) Labeled {
	v := model.VerdictUncertain
	if m := ecommerceToken.FindStringSubmatch(text); m != nil {
		v = model.Verdict(m[1])
	}
	if v == model.VerdictFlashDriveScam {
		v = model.VerdictWarning
	}
	return Labeled{Verdict: v, Reasoning: stripFirstToken(text)}
}

// stripFirstToken removes the first suffix-tagged word and trims the rest.
func stripFirstToken(text string) string {
	loc := anyToken.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
}

// PageType is the label chosen by the prepass.
type PageType string

// Prepass labels.
const (
	PageBlogPost    PageType = "BlogPost"
	PageNewsArticle PageType = "NewsArticle"
	PageOther       PageType = "Other"
	PageRescan      PageType = "Rescan"
	PageEcommerce   PageType = "Ecommerce"
)

var pageTypes = []PageType{PageBlogPost, PageNewsArticle, PageOther, PageRescan, PageEcommerce}

// Prepass parses a page-type answer. Without a token the label is Other.
// Case is ignored both when finding the token and when mapping it to a
// label, so newsarticle_291aec is a NewsArticle on purpose.
func Prepass(text string) PageType {
	m := prepassToken.FindStringSubmatch(text)
	if m == nil {
		return PageOther
	}
	for _, pt := range pageTypes {
		if strings.EqualFold(m[1], string(pt)) {
			return pt
		}
	}
	return PageOther
}

// Pipeline maps the label to the pipeline that handles it.
// Blog posts and unknown pages go to the scam pipeline.
func (p PageType) Pipeline() model.Pipeline {
	switch p {
	case PageNewsArticle:
		return model.PipelineNews
	case PageEcommerce:
		return model.PipelineEcommerce
	case PageRescan:
		return model.PipelineRescan
	default:
		return model.PipelineScam
	}
}

// Leak is the parsed answer of the sensitive-data check.
type Leak struct {
	// Cleared is true when the message may be sent.
	Cleared bool
	// Detected is true when real sensitive data was reported.
	Detected bool
	// Reasoning explains a block. Empty when Cleared.
	Reasoning string
}

// leakFallback is shown when the model answered without any token.
const leakFallback = "Unable to analyze message clearly."

// LeakCheck parses a sensitive-data answer. Cleared and Placeholded both
// clear the message unless Detected also appears.
func LeakCheck(text string) Leak {
	isDetected := strings.Contains(text, detected)
	if (strings.Contains(text, cleared) || strings.Contains(text, placeholded)) && !isDetected {
		return Leak{Cleared: true}
	}
	reasoning := text
	if isDetected {
		reasoning = strings.TrimSpace(detectedTail.ReplaceAllString(text, ""))
	}
	if reasoning == "" {
		reasoning = leakFallback
	}
	return Leak{Detected: isDetected, Reasoning: reasoning}
}

// Screening is the parsed answer of a two-section harmful-content check.
type Screening struct {
	Cleared   bool
	Reasoning string
	Summary   string
}

// Summaries used when nothing was found.
const (
	NoDistressSummary = "No distress signals detected."
	NoHarmSummary     = "No harmful content detected."
)

// Distress parses a distress check. A missing separator makes the whole
// answer the verdict section.
func Distress(text string) Screening {
	reasoning, rest, _ := strings.Cut(text, Separator)
	verdictPart, _, _ := strings.Cut(rest, Separator)
	if verdictPart = strings.TrimSpace(verdictPart); verdictPart == "" {
		verdictPart = text
	}
	return screen(strings.TrimSpace(reasoning), verdictPart, NoDistressSummary)
}

// Social parses a photo-post scan. Empty sections are ignored and a missing
// verdict section counts as cleared.
func Social(text string) Screening {
	var parts []string
	for _, p := range strings.Split(text, Separator) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	reasoning, verdictPart := "", cleared
	if len(parts) >= 1 {
		reasoning = parts[0]
	}
	if len(parts) >= 2 {
		verdictPart = parts[1]
	}
	return screen(reasoning, verdictPart, NoHarmSummary)
}

func screen(reasoning, verdictPart, clearSummary string) Screening {
	if strings.Contains(verdictPart, cleared) {
		return Screening{Cleared: true, Reasoning: reasoning, Summary: clearSummary}
	}
	return Screening{
		Reasoning: reasoning,
		Summary:   strings.TrimSpace(strings.Replace(verdictPart, cleared, "", 1)),
	}
}

// Analysis joins reasoning and summary the way the family log presents them.
func (s Screening) Analysis() string {
	if s.Cleared {
		return s.Reasoning
	}
	return s.Reasoning + "\n\nSummary: " + s.Summary
}
