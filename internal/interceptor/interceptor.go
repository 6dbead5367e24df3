package interceptor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/swiftguard/internal/eventsink"
	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/metrics"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
)

// Store is the part of the record cache the analyzers use. cache.Store
// implements it.
type Store interface {
	MonitoringMode(ctx context.Context) (model.MonitoringMode, error)
	Enrollment(ctx context.Context) (model.Enrollment, error)
	AppendLLMLog(ctx context.Context, entry model.LLMLogEntry)
	AppendFamilyCenterLog(ctx context.Context, entry model.FamilyCenterLogEntry)
	SetPromptGuardState(ctx context.Context, st model.PromptGuardState) error
}

// PopupOpener shows the extension popup over a tab.
type PopupOpener interface {
	OpenPopup(ctx context.Context, tabID int) error
}

// PopupFunc adapts a function to PopupOpener.
type PopupFunc func(ctx context.Context, tabID int) error

// OpenPopup calls f.
func (f PopupFunc) OpenPopup(ctx context.Context, tabID int) error {
	return f(ctx, tabID)
}

// Deps are the collaborators of an Interceptor.
type Deps struct {
	Store    Store
	Sessions llm.SessionCreator
	Notifier notify.Publisher
	Popup    PopupOpener

	// Events may be nil, in which case flagged messages are only logged.
	Events eventsink.Sink
}

// Request is one message submitted for analysis.
type Request struct {
	TabID    int    `json:"tabId"`
	Message  string `json:"message"`
	Platform string `json:"platform"`
}

// Interceptor owns the analyzers and the armed sessions.
type Interceptor struct {
	deps    Deps
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[int]*Session
}

// Option is a function that configures an Interceptor.
type Option func(*Interceptor)

// WithLogger sets a custom logger for the interceptor.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interceptor) {
		i.logger = logger
	}
}

// WithMetrics records decisions on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Interceptor) {
		i.metrics = m
	}
}

// WithClock overrides the time source used for log and state timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Interceptor) {
		i.now = now
	}
}

// New creates an Interceptor.
func New(deps Deps, opts ...Option) *Interceptor {
	i := &Interceptor{
		deps:     deps,
		now:      time.Now,
		sessions: make(map[int]*Session),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	return i
}

// Arm starts intercepting tabID for the given chatbot vendor. Arming an
// armed tab only updates its monitoring mode; a pending block survives.
// Mode none disarms the tab.
func (i *Interceptor) Arm(tabID int, chatbotType string, mode model.MonitoringMode) *Session {
	i.mu.Lock()
	defer i.mu.Unlock()

	if mode == model.MonitoringNone {
		delete(i.sessions, tabID)
		return nil
	}
	if s, ok := i.sessions[tabID]; ok {
		s.setMode(mode)
		return s
	}
	s := &Session{
		i:        i,
		tabID:    tabID,
		platform: PlatformFor(chatbotType),
		mode:     mode,
	}
	i.sessions[tabID] = s
	i.logger.Debug("interceptor armed", "tab", tabID, "platform", s.platform, "mode", mode)
	return s
}

// Disarm forgets the session for tabID.
func (i *Interceptor) Disarm(tabID int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.sessions, tabID)
}

// Session returns the armed session for tabID.
func (i *Interceptor) Session(tabID int) (*Session, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	s, ok := i.sessions[tabID]
	return s, ok
}

// Submit runs the send decision for the session armed on tabID.
func (i *Interceptor) Submit(ctx context.Context, tabID int, text string) (Result, error) {
	s, ok := i.Session(tabID)
	if !ok {
		return Result{}, ErrNotArmed
	}
	return s.Submit(ctx, text), nil
}

// InputChanged reports an edit of the input on tabID.
func (i *Interceptor) InputChanged(tabID int, text string) error {
	s, ok := i.Session(tabID)
	if !ok {
		return ErrNotArmed
	}
	s.InputChanged(text)
	return nil
}

func (i *Interceptor) logResponse(ctx context.Context, pipeline, platform, text string) {
	i.deps.Store.AppendLLMLog(ctx, model.LLMLogEntry{
		Pipeline: pipeline,
		Platform: platform,
		Text:     text,
	})
}

func (i *Interceptor) publish(msg notify.Message) {
	if i.deps.Notifier != nil {
		i.deps.Notifier.Publish(msg)
	}
}
