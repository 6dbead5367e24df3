// Package notify broadcasts state changes to every connected observer:
// the popup, the settings page and the extension shell that executes host
// commands. Delivery is fire-and-forget; a slow observer loses messages
// instead of stalling the classification core.
package notify

import (
	"log/slog"
	"sync"

	"github.com/nao1215/swiftguard/internal/model"
)

// Action names a message kind.
type Action string

// Observer notifications.
const (
	ActionAnalyzing              Action = "analyzing"
	ActionScamVerdict            Action = "scam-verdict"
	ActionNewsFactCheck          Action = "news-factcheck"
	ActionChatbotIdle            Action = "chatbot-idle"
	ActionLLMAvailabilityUpdated Action = "llm-availability-updated"
	ActionLLMDownloadProgress    Action = "llm-download-progress"
	ActionPromptGuardAnalyzing   Action = "promptguard-analyzing"
	ActionPromptGuardFlagged     Action = "promptguard-flagged"
	ActionSocialFlagged          Action = "social-flagged"
)

// Host commands, executed by the extension shell for TabID.
const (
	ActionInjectScamBanner Action = "inject-scam-banner"
	ActionArmInterceptor   Action = "arm-interceptor"
	ActionOpenPopup        Action = "open-popup"
	ActionReloadTab        Action = "reload-tab"
	ActionCaptureSnapshot  Action = "capture-snapshot"
)

// Message is one broadcast. Only the fields relevant to Action are set.
type Message struct {
	Action         Action               `json:"action"`
	TabID          int                  `json:"tabId,omitempty"`
	Pipeline       model.Pipeline       `json:"pipeline,omitempty"`
	Verdict        string               `json:"verdict,omitempty"`
	Reasoning      string               `json:"reasoning,omitempty"`
	Phrase         string               `json:"phrase,omitempty"`
	Reviews        []model.Review       `json:"reviews,omitempty"`
	ClaimTitle     string               `json:"claimTitle,omitempty"`
	ChatbotType    string               `json:"chatbotType,omitempty"`
	MonitoringMode model.MonitoringMode `json:"monitoringMode,omitempty"`
	Availability   string               `json:"availability,omitempty"`
	Progress       int                  `json:"progress,omitempty"`
	Platform       string               `json:"platform,omitempty"`
	Summary        string               `json:"summary,omitempty"`
}

// IsHostCommand reports whether the message addresses the extension shell.
func (m Message) IsHostCommand() bool {
	switch m.Action {
	case ActionInjectScamBanner, ActionArmInterceptor, ActionOpenPopup, ActionReloadTab, ActionCaptureSnapshot:
		return true
	default:
		return false
	}
}

// Publisher accepts broadcasts. Hub implements it.
type Publisher interface {
	Publish(msg Message)
}

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Hub fans messages out to subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	onDrop func(Message)
	logger *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithDropHook is called for every message a full subscriber misses.
func WithDropHook(fn func(Message)) Option {
	return func(h *Hub) {
		h.onDrop = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// NewHub creates a Hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: DefaultBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Subscription receives messages until it is closed.
type Subscription struct {
	hub  *Hub
	ch   chan Message
	once sync.Once
}

// C returns the message channel. It is closed by Close.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close detaches the subscription from its hub.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

// Subscribe attaches a new subscriber.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{hub: h, ch: make(chan Message, h.buffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Publish delivers msg to every subscriber without blocking.
func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		select {
		case s.ch <- msg:
		default:
			h.logger.Debug("subscriber queue full, dropping message", "action", msg.Action)
			if h.onDrop != nil {
				h.onDrop(msg)
			}
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
