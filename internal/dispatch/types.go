package dispatch

import (
	"github.com/nao1215/swiftguard/internal/engine"
	"github.com/nao1215/swiftguard/internal/model"
)

// Action names a dispatch request.
type Action string

// Popup and settings actions.
const (
	ActionClassifyCurrentPage   Action = "classify-current-page"
	ActionGetCurrentResult      Action = "get-current-result"
	ActionAnalyzePrompt         Action = "analyze-prompt"
	ActionAnalyzeFamilyCenter   Action = "analyze-family-center"
	ActionMonitoringModeUpdated Action = "monitoring-mode-updated"
	ActionReanalyzeCurrentPage  Action = "reanalyze-current-page"
	ActionStartLLMDownload      Action = "start-llm-download"
	ActionTranslate             Action = "translate"
	ActionGetPromptGuardState   Action = "get-promptguard-state"
	ActionClearPromptGuardState Action = "clear-promptguard-state"
	ActionGetSettings           Action = "get-settings"
	ActionSetSettings           Action = "set-settings"
)

// Extension shell actions.
const (
	ActionTabUpdated         Action = "tab-updated"
	ActionTabActivated       Action = "tab-activated"
	ActionTabRemoved         Action = "tab-removed"
	ActionNavigationCommitted Action = "navigation-committed"
	ActionSnapshot           Action = "snapshot"
	ActionInterceptorSubmit  Action = "interceptor-submit"
	ActionInterceptorInput   Action = "interceptor-input"
)

// Request is one dispatch call. Only the fields the action needs are read.
type Request struct {
	Action Action `json:"action"`

	TabID    int                  `json:"tabId,omitempty"`
	Tab      *engine.Tab          `json:"tab,omitempty"`
	Snapshot []byte               `json:"snapshot,omitempty"`
	Message  string               `json:"message,omitempty"`
	Platform string               `json:"platform,omitempty"`
	Mode     model.MonitoringMode `json:"mode,omitempty"`

	TargetLang string `json:"targetLang,omitempty"`
	Text       string `json:"text,omitempty"`
	Reasoning  string `json:"reasoning,omitempty"`

	Settings *SettingsUpdate `json:"settings,omitempty"`
}

// OK is the acknowledgement returned by command-like actions.
type OK struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CurrentResult is the response to get-current-result.
type CurrentResult struct {
	Key   string            `json:"key"`
	Entry *model.PageRecord `json:"entry"`
}

// Translation is the response to translate.
type Translation struct {
	TranslatedText      string `json:"translatedText,omitempty"`
	TranslatedReasoning string `json:"translatedReasoning,omitempty"`
	Error               string `json:"error,omitempty"`
}

// Settings is the response to get-settings.
type Settings struct {
	MonitoringMode   model.MonitoringMode `json:"monitoringMode"`
	InferenceMode    model.InferenceMode  `json:"inferenceMode"`
	FamilyID         string               `json:"familyId,omitempty"`
	FamilyUserID     string               `json:"familyUserId,omitempty"`
	Availability     string               `json:"llmAvailability"`
	DownloadProgress int                  `json:"llmDownloadProgress,omitempty"`
}

// SettingsUpdate changes the fields that are set. SignedInUID signs the
// family identity in; an empty string signs it out.
type SettingsUpdate struct {
	MonitoringMode *string `json:"monitoringMode,omitempty"`
	InferenceMode  *string `json:"inferenceMode,omitempty"`
	FamilyID       *string `json:"familyId,omitempty"`
	FamilyUserID   *string `json:"familyUserId,omitempty"`
	SignedInUID    *string `json:"signedInUid,omitempty"`
}
