package model

import "encoding/json"

// NewsVerdict is the outcome of the fact-check stage.
//
// The zero value means no evidence was found or the verdict prompt failed.
// It is serialized as JSON null.
type NewsVerdict string

const (
	// NewsVerdictNone means there was nothing to judge.
	NewsVerdictNone NewsVerdict = ""
	// NewsVerdictTrue means the reviews support the headline.
	NewsVerdictTrue NewsVerdict = "True"
	// NewsVerdictQuestionable means the reviews debunk the headline.
	NewsVerdictQuestionable NewsVerdict = "Questionable"
	// NewsVerdictUnrelated means the reviews do not address the headline.
	NewsVerdictUnrelated NewsVerdict = "Unrelated"
)

// MarshalJSON encodes NewsVerdictNone as null.
func (v NewsVerdict) MarshalJSON() ([]byte, error) {
	if v == NewsVerdictNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(v))
}

// UnmarshalJSON decodes null as NewsVerdictNone.
func (v *NewsVerdict) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = NewsVerdictNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = NewsVerdict(s)
	return nil
}

// Surfaces reports whether the verdict warrants opening the popup.
func (v NewsVerdict) Surfaces() bool {
	return v == NewsVerdictQuestionable
}

// Review is one fact-check review returned by the lookup service.
type Review struct {
	PublisherName string `json:"publisherName"`
	PublisherSite string `json:"publisherSite"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	TextualRating string `json:"textualRating"`
}

// NewsResult is the payload produced by the two-stage news pipeline.
type NewsResult struct {
	Phrases        []string    `json:"phrases"`
	PhraseUsed     string      `json:"phraseUsed"`
	Reviews        []Review    `json:"reviews"`
	Verdict        NewsVerdict `json:"verdict"`
	Reasoning      string      `json:"reasoning"`
	ClaimTitle     string      `json:"claimTitle"`
	VerdictRawText string      `json:"verdictRawText,omitempty"`
	RawResponse    string      `json:"-"`
}
