package host

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nao1215/swiftguard/internal/engine"
	"github.com/nao1215/swiftguard/internal/interceptor"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
)

// Armer keeps the server side of the chatbot interceptor in step with the
// tabs it is installed in. interceptor.Interceptor implements it.
type Armer interface {
	Arm(tabID int, chatbotType string, mode model.MonitoringMode) *interceptor.Session
	Disarm(tabID int)
}

// noActive marks that no tab is in the foreground.
const noActive = -1

// DefaultCaptureTimeout bounds how long CaptureSnapshot waits for the shell
// to push a requested snapshot.
const DefaultCaptureTimeout = 2 * time.Second

// Bridge is a Host backed by state the extension shell pushes.
type Bridge struct {
	notifier notify.Publisher
	armer    Armer
	logger   *slog.Logger

	captureTimeout time.Duration

	mu        sync.RWMutex
	tabs      map[int]engine.Tab
	active    int
	snapshots map[int][]byte
	waiters   map[int][]chan struct{}
}

// BridgeOption is a function that configures a Bridge.
type BridgeOption func(*Bridge)

// WithArmer arms and disarms interceptor sessions alongside the commands
// sent to the shell.
func WithArmer(a Armer) BridgeOption {
	return func(b *Bridge) {
		b.armer = a
	}
}

// WithLogger sets a custom logger for the bridge.
func WithLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithCaptureTimeout overrides DefaultCaptureTimeout. Zero makes
// CaptureSnapshot return at once when no snapshot is cached.
func WithCaptureTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d >= 0 {
			b.captureTimeout = d
		}
	}
}

// NewBridge creates a Bridge that sends host commands through n.
func NewBridge(n notify.Publisher, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		notifier:       n,
		captureTimeout: DefaultCaptureTimeout,
		tabs:           make(map[int]engine.Tab),
		active:         noActive,
		snapshots:      make(map[int][]byte),
		waiters:        make(map[int][]chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// UpdateTab records the pushed state of a tab. An active tab becomes the
// foreground tab. A new URL discards the tab's snapshot.
func (b *Bridge) UpdateTab(tab engine.Tab) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.tabs[tab.ID]; ok && prev.URL != tab.URL {
		delete(b.snapshots, tab.ID)
	}
	if tab.Active {
		b.setActiveLocked(tab.ID)
	} else if b.active == tab.ID {
		b.active = noActive
	}
	b.tabs[tab.ID] = tab
}

// Activate marks tabID as the foreground tab.
func (b *Bridge) Activate(tabID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tabs[tabID]; !ok {
		return engine.ErrTabNotFound
	}
	b.setActiveLocked(tabID)
	return nil
}

func (b *Bridge) setActiveLocked(tabID int) {
	if b.active != noActive && b.active != tabID {
		if prev, ok := b.tabs[b.active]; ok {
			prev.Active = false
			b.tabs[b.active] = prev
		}
	}
	if t, ok := b.tabs[tabID]; ok {
		t.Active = true
		b.tabs[tabID] = t
	}
	b.active = tabID
}

// RemoveTab forgets a closed tab.
func (b *Bridge) RemoveTab(tabID int) {
	b.mu.Lock()
	delete(b.tabs, tabID)
	delete(b.snapshots, tabID)
	b.wakeLocked(tabID)
	if b.active == tabID {
		b.active = noActive
	}
	b.mu.Unlock()

	if b.armer != nil {
		b.armer.Disarm(tabID)
	}
}

// PushSnapshot stores the latest PNG capture of a tab and releases any
// CaptureSnapshot call waiting for it.
func (b *Bridge) PushSnapshot(tabID int, png []byte) {
	if len(png) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots[tabID] = png
	b.wakeLocked(tabID)
}

func (b *Bridge) wakeLocked(tabID int) {
	for _, ch := range b.waiters[tabID] {
		close(ch)
	}
	delete(b.waiters, tabID)
}

func (b *Bridge) forgetWaiterLocked(tabID int, ch chan struct{}) {
	ws := b.waiters[tabID]
	for i, w := range ws {
		if w == ch {
			ws = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(ws) == 0 {
		delete(b.waiters, tabID)
		return
	}
	b.waiters[tabID] = ws
}

// Tabs returns every known tab ordered by ID.
func (b *Bridge) Tabs() []engine.Tab {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]engine.Tab, 0, len(b.tabs))
	for _, t := range b.tabs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tab implements engine.Host.
func (b *Bridge) Tab(_ context.Context, id int) (engine.Tab, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tabs[id]
	if !ok {
		return engine.Tab{}, engine.ErrTabNotFound
	}
	return t, nil
}

// ActiveTab implements engine.Host.
func (b *Bridge) ActiveTab(_ context.Context) (engine.Tab, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tabs[b.active]
	if !ok {
		return engine.Tab{}, engine.ErrNoActiveTab
	}
	return t, nil
}

// CaptureSnapshot implements engine.Host. It returns the latest snapshot
// the shell pushed. When there is none, the shell is asked for one and the
// call waits for the push until the capture timeout or ctx ends; then
// ErrNoSnapshot is returned.
func (b *Bridge) CaptureSnapshot(ctx context.Context, tabID int) ([]byte, error) {
	b.mu.Lock()
	if png, ok := b.snapshots[tabID]; ok {
		b.mu.Unlock()
		return png, nil
	}
	ch := make(chan struct{})
	b.waiters[tabID] = append(b.waiters[tabID], ch)
	b.mu.Unlock()

	b.command(notify.Message{Action: notify.ActionCaptureSnapshot, TabID: tabID})

	if b.captureTimeout > 0 {
		timer := time.NewTimer(b.captureTimeout)
		select {
		case <-ch:
		case <-timer.C:
		case <-ctx.Done():
		}
		timer.Stop()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.forgetWaiterLocked(tabID, ch)
	if png, ok := b.snapshots[tabID]; ok {
		return png, nil
	}
	return nil, ErrNoSnapshot
}

// DiscardSnapshot implements engine.Host. The next CaptureSnapshot asks the
// shell for a new capture instead of returning the old one.
func (b *Bridge) DiscardSnapshot(_ context.Context, tabID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.snapshots, tabID)
	return nil
}

// ArmInterceptor implements engine.Host.
func (b *Bridge) ArmInterceptor(_ context.Context, tabID int, chatbotType string, mode model.MonitoringMode) error {
	if b.armer != nil {
		b.armer.Arm(tabID, chatbotType, mode)
	}
	b.command(notify.Message{
		Action:         notify.ActionArmInterceptor,
		TabID:          tabID,
		ChatbotType:    chatbotType,
		MonitoringMode: mode,
		Platform:       interceptor.PlatformFor(chatbotType),
	})
	return nil
}

// ReloadTab implements engine.Host. The interceptor session does not
// survive a reload.
func (b *Bridge) ReloadTab(_ context.Context, tabID int) error {
	if b.armer != nil {
		b.armer.Disarm(tabID)
	}
	b.command(notify.Message{Action: notify.ActionReloadTab, TabID: tabID})
	return nil
}

// InjectScamBanner implements engine.Host.
func (b *Bridge) InjectScamBanner(_ context.Context, tabID int, reasoning string) error {
	b.command(notify.Message{Action: notify.ActionInjectScamBanner, TabID: tabID, Reasoning: reasoning})
	return nil
}

// OpenPopup implements engine.Host.
func (b *Bridge) OpenPopup(_ context.Context, tabID int) error {
	b.command(notify.Message{Action: notify.ActionOpenPopup, TabID: tabID})
	return nil
}

func (b *Bridge) command(msg notify.Message) {
	b.logger.Debug("host command", "action", msg.Action, "tab", msg.TabID)
	if b.notifier != nil {
		b.notifier.Publish(msg)
	}
}
