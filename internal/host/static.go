package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nao1215/swiftguard/internal/engine"
	"github.com/nao1215/swiftguard/internal/model"
)

// Static is a Host over a fixed set of pages. Side effects are recorded
// rather than shown.
type Static struct {
	logger    *slog.Logger
	tabs      map[int]engine.Tab
	order     []int
	snapshots map[int][]byte

	mu      sync.Mutex
	banners map[int]string
	popups  map[int]int
}

// NewStatic returns a host serving tabs. The first tab marked active, or
// else the first tab, is the foreground tab.
func NewStatic(logger *slog.Logger, tabs ...engine.Tab) *Static {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Static{
		logger:    logger,
		tabs:      make(map[int]engine.Tab, len(tabs)),
		snapshots: make(map[int][]byte),
		banners:   make(map[int]string),
		popups:    make(map[int]int),
	}
	for _, t := range tabs {
		s.tabs[t.ID] = t
		s.order = append(s.order, t.ID)
	}
	return s
}

// SetSnapshot supplies the PNG returned for tabID.
func (s *Static) SetSnapshot(tabID int, png []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[tabID] = png
}

// Banner returns the scam banner reasoning shown on tabID, if any.
func (s *Static) Banner(tabID int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.banners[tabID]
	return r, ok
}

// Popups returns how many times the popup was opened over tabID.
func (s *Static) Popups(tabID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popups[tabID]
}

// Tab implements engine.Host.
func (s *Static) Tab(_ context.Context, id int) (engine.Tab, error) {
	t, ok := s.tabs[id]
	if !ok {
		return engine.Tab{}, engine.ErrTabNotFound
	}
	return t, nil
}

// ActiveTab implements engine.Host.
func (s *Static) ActiveTab(_ context.Context) (engine.Tab, error) {
	for _, id := range s.order {
		if s.tabs[id].Active {
			return s.tabs[id], nil
		}
	}
	if len(s.order) == 0 {
		return engine.Tab{}, engine.ErrNoActiveTab
	}
	return s.tabs[s.order[0]], nil
}

// CaptureSnapshot implements engine.Host.
func (s *Static) CaptureSnapshot(_ context.Context, tabID int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	png, ok := s.snapshots[tabID]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return png, nil
}

// DiscardSnapshot implements engine.Host. The supplied snapshot is the
// only one there is, so it is kept.
func (s *Static) DiscardSnapshot(context.Context, int) error {
	return nil
}

// ArmInterceptor implements engine.Host. There is no page to arm.
func (s *Static) ArmInterceptor(_ context.Context, tabID int, chatbotType string, mode model.MonitoringMode) error {
	s.logger.Debug("chatbot page, interceptor not armed", "tab", tabID, "chatbot", chatbotType, "mode", mode)
	return nil
}

// ReloadTab implements engine.Host.
func (s *Static) ReloadTab(context.Context, int) error {
	return nil
}

// InjectScamBanner implements engine.Host.
func (s *Static) InjectScamBanner(_ context.Context, tabID int, reasoning string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banners[tabID] = reasoning
	return nil
}

// OpenPopup implements engine.Host.
func (s *Static) OpenPopup(_ context.Context, tabID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.popups[tabID]++
	return nil
}
