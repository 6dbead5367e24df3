package interceptor

import (
	"context"
	"sync"

	"github.com/nao1215/swiftguard/internal/model"
)

// Result tells the host what to do with an intercepted send action.
type Result struct {
	// Replay is true when the original send action must be dispatched.
	Replay bool `json:"replay"`

	// Override is true when the message was let through because it was
	// resubmitted unchanged after a block.
	Override bool `json:"override,omitempty"`

	// Decision is the analyzer verdict. It is nil when no analysis ran.
	Decision *model.Decision `json:"decision,omitempty"`
}

// Session is the interceptor state of one armed chatbot tab.
type Session struct {
	i        *Interceptor
	tabID    int
	platform string

	mu      sync.Mutex
	mode    model.MonitoringMode
	blocked *string
}

// TabID returns the tab the session is armed on.
func (s *Session) TabID() int { return s.tabID }

// Platform returns the chatbot platform name sent with each analysis.
func (s *Session) Platform() string { return s.platform }

// Mode returns the monitoring mode the session was armed with.
func (s *Session) Mode() model.MonitoringMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) setMode(mode model.MonitoringMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// PendingBlock returns the remembered blocked message, if any.
func (s *Session) PendingBlock() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocked == nil {
		return "", false
	}
	return *s.blocked, true
}

// Submit decides whether the message text may be sent.
//
// In promptguard mode, text equal to the pending block is let through at
// once and the memory is cleared. Empty text is let through. Anything else
// goes to the analyzer for the session's mode; a blocked message is
// remembered so that sending it again unchanged overrides the block.
func (s *Session) Submit(ctx context.Context, text string) Result {
	s.mu.Lock()
	mode := s.mode
	if mode == model.MonitoringPromptGuard && s.blocked != nil && *s.blocked == text {
		s.blocked = nil
		s.mu.Unlock()
		s.i.logger.Debug("blocked message resubmitted, letting it through", "tab", s.tabID)
		return Result{Replay: true, Override: true}
	}
	s.mu.Unlock()

	if text == "" {
		return Result{Replay: true}
	}

	req := Request{TabID: s.tabID, Message: text, Platform: s.platform}
	var d model.Decision
	if mode == model.MonitoringFamilyCenter {
		d = s.i.AnalyzeFamilyCenter(ctx, req)
	} else {
		d = s.i.AnalyzePrompt(ctx, req)
	}

	if !d.Proceed && mode == model.MonitoringPromptGuard {
		s.mu.Lock()
		s.blocked = &text
		s.mu.Unlock()
	}
	return Result{Replay: d.Proceed, Decision: &d}
}

// InputChanged clears the pending block once the input no longer holds
// the blocked text.
func (s *Session) InputChanged(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == model.MonitoringPromptGuard && s.blocked != nil && *s.blocked != text {
		s.blocked = nil
	}
}
