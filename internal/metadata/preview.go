package metadata

// Field names used by the classification core.
const (
	FieldOGURL        = "og:url"
	FieldOGTitle      = "og:title"
	FieldTwitterTitle = "twitter:title"
	FieldPageTitle    = "page:title"
)

// MeetAIModeMarker is the in-page text that identifies the search engine's
// chatbot assistant.
const MeetAIModeMarker = "Meet AI Mode"

// Preview is the social-preview metadata extracted from a page.
type Preview struct {
	// Fields maps metadata names (og:*, twitter:*, page:*) to their content.
	Fields map[string]string `json:"previewData"`

	// ContainsMeetAIMode reports whether the page body contains MeetAIModeMarker.
	ContainsMeetAIMode bool `json:"containsMeetAIMode"`
}

// Get returns the value of a metadata field, or "" when absent.
func (p Preview) Get(name string) string {
	if p.Fields == nil {
		return ""
	}
	return p.Fields[name]
}

// CanonicalURL returns the og:url field.
func (p Preview) CanonicalURL() string {
	return p.Get(FieldOGURL)
}

// Title returns the first non-empty of og:title, twitter:title and page:title.
func (p Preview) Title() string {
	for _, name := range []string{FieldOGTitle, FieldTwitterTitle, FieldPageTitle} {
		if v := p.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// Clone returns a copy of the field map suitable for storing on a record.
func (p Preview) Clone() map[string]string {
	out := make(map[string]string, len(p.Fields))
	for k, v := range p.Fields {
		out[k] = v
	}
	return out
}
