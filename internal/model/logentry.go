package model

import "time"

// LLMLogEntry is one raw model response kept for diagnostics.
type LLMLogEntry struct {
	ID        string    `json:"id"`
	Pipeline  string    `json:"pipeline"`
	Key       string    `json:"key,omitempty"`
	URL       string    `json:"url"`
	Platform  string    `json:"platform,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// FamilyCenterLogEntry is one screened chatbot message in distress-monitoring mode.
type FamilyCenterLogEntry struct {
	Platform  string    `json:"platform"`
	Message   string    `json:"message"`
	Analysis  string    `json:"analysis"`
	Timestamp time.Time `json:"timestamp"`
	Flagged   bool      `json:"flagged"`
}

// PromptGuardState is the last leak-prevention block, kept until the popup reads it.
type PromptGuardState struct {
	Reasoning string    `json:"reasoning"`
	Platform  string    `json:"platform"`
	Timestamp time.Time `json:"timestamp"`
}

// Decision is the interceptor verdict for one outgoing chatbot message.
type Decision struct {
	Proceed bool   `json:"proceed"`
	Cleared bool   `json:"cleared"`
	Logged  bool   `json:"logged,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Enrollment identifies the family-monitoring group this device belongs to.
type Enrollment struct {
	FamilyID     string `json:"familyId"`
	FamilyUserID string `json:"familyUserId"`
}

// Enrolled reports whether both identifiers are present.
func (e Enrollment) Enrolled() bool {
	return e.FamilyID != "" && e.FamilyUserID != ""
}
