package verdict

import (
	"regexp"
	"strings"

	"github.com/nao1215/swiftguard/internal/model"
)

// maxPhrases caps the search phrases taken from one answer.
const maxPhrases = 3

var (
	phraseSection   = regexp.MustCompile(`(?i)PHRASES_START_21093a([\s\S]*?)(?:PHRASES_END_21093a|$)`)
	headlineSection = regexp.MustCompile(`(?i)HEADLINE_START_21093a\s*([\s\S]*?)(?:HEADLINE_END_21093a|$)`)
	phraseSplit     = regexp.MustCompile(`[|;\n\r]+`)
	phraseLead      = regexp.MustCompile(`^[\s\-•"'\x{201C}\x{201D}]+`)
	phraseTrail     = regexp.MustCompile(`["'\x{201C}\x{201D}\s;]+$`)

	newsQuestionable = regexp.MustCompile(`(?i)(Questionable|False)_21093a`)
	newsUnrelated    = regexp.MustCompile(`(?i)Unrelated_21093a`)
	newsTrue         = regexp.MustCompile(`(?i)True_21093a`)
	newsAnyToken     = regexp.MustCompile(`(?i)(True|Questionable|Unrelated|False)_21093a`)
)

// NewsPhrases extracts up to three search phrases from the first-stage news
// answer. Phrases are deduplicated without regard to case and keep their order.
// When the start marker is missing the whole answer is searched.
func NewsPhrases(text string) []string {
	cleaned := stripFences(text)
	segment := cleaned
	if m := phraseSection.FindStringSubmatch(cleaned); m != nil {
		segment = m[1]
	}

	seen := make(map[string]struct{})
	phrases := make([]string, 0, maxPhrases)
	for _, part := range phraseSplit.Split(segment, -1) {
		part = phraseLead.ReplaceAllString(part, "")
		part = strings.TrimSpace(phraseTrail.ReplaceAllString(part, ""))
		if part == "" {
			continue
		}
		key := strings.ToLower(part)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		phrases = append(phrases, part)
		if len(phrases) == maxPhrases {
			break
		}
	}
	return phrases
}

// NewsHeadline returns the headline section of the first-stage answer, or "".
func NewsHeadline(text string) string {
	if m := headlineSection.FindStringSubmatch(stripFences(text)); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// NewsVerdict parses the second-stage answer. False counts as Questionable
// and takes precedence over the other tokens. No token leaves the verdict empty.
func NewsVerdict(text string) (model.NewsVerdict, string) {
	v := model.NewsVerdictNone
	switch {
	case newsQuestionable.MatchString(text):
		v = model.NewsVerdictQuestionable
	case newsUnrelated.MatchString(text):
		v = model.NewsVerdictUnrelated
	case newsTrue.MatchString(text):
		v = model.NewsVerdictTrue
	}
	return v, strings.TrimSpace(newsAnyToken.ReplaceAllString(text, ""))
}

func stripFences(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "```", ""))
}
