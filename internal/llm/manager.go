package llm

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/nao1215/swiftguard/internal/model"
)

// DefaultGracePeriod is how long the manager waits before re-checking a
// downloadable runtime, which some platforms report briefly before settling.
const DefaultGracePeriod = 3 * time.Second

// Listener is notified of every availability change.
type Listener func(availability model.Availability, downloadProgress int)

// StateStore persists availability for readers in other processes.
// cache.Store implements it.
type StateStore interface {
	SetAvailability(ctx context.Context, a model.Availability) error
	SetDownloadProgress(ctx context.Context, progress int) error
}

// Manager tracks the availability of a Runtime and gates session creation.
type Manager struct {
	runtime Runtime
	store   StateStore
	grace   time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	state    model.Availability
	progress int

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStateStore persists every resolved state before it is broadcast.
func WithStateStore(s StateStore) ManagerOption {
	return func(m *Manager) {
		m.store = s
	}
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.grace = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager. A nil runtime means the platform has no
// model capability and every check resolves to unavailable.
func NewManager(rt Runtime, opts ...ManagerOption) *Manager {
	m := &Manager{
		runtime:   rt,
		grace:     DefaultGracePeriod,
		state:     model.AvailabilityUnavailable,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// State returns the last resolved availability and download progress.
func (m *Manager) State() (model.Availability, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.progress
}

// OnAvailabilityChange registers l and returns a function that removes it.
// Listeners run synchronously on the goroutine that changed the state.
func (m *Manager) OnAvailabilityChange(l Listener) func() {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		delete(m.listeners, id)
	}
}

// CheckAvailability queries the runtime, resolves flapping downloadable
// states with one delayed re-check, then persists and broadcasts the result.
// Query failures resolve to unavailable.
func (m *Manager) CheckAvailability(ctx context.Context) model.Availability {
	a := m.query(ctx)
	if a == model.AvailabilityDownloadable && m.grace > 0 {
		timer := time.NewTimer(m.grace)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
			if again := m.query(ctx); again != a {
				m.logger.Debug("availability settled after grace period", "from", a, "to", again)
				a = again
			}
		}
	}

	m.mu.Lock()
	m.state = a
	progress := m.progress
	m.mu.Unlock()

	m.publish(ctx, a, progress, false)
	return a
}

func (m *Manager) query(ctx context.Context) model.Availability {
	if m.runtime == nil {
		return model.AvailabilityUnavailable
	}
	a, err := m.runtime.Availability(ctx)
	if err != nil {
		m.logger.Warn("availability check failed", "error", err)
		return model.AvailabilityUnavailable
	}
	return a
}

// CreateSession re-checks availability and then:
//   - fails with ErrModelUnavailable when the model is unavailable
//   - fails with ErrModelBusy while a download is running
//   - starts the download when the model is downloadable, reporting progress
//   - creates the session directly when the model is available
func (m *Manager) CreateSession(ctx context.Context, opts SessionOptions) (Session, error) {
	switch m.CheckAvailability(ctx) {
	case model.AvailabilityUnavailable:
		return nil, ErrModelUnavailable
	case model.AvailabilityDownloading:
		return nil, ErrModelBusy
	case model.AvailabilityDownloadable:
		m.logger.Info("model downloadable, starting download")
		user := opts.Monitor
		opts.Monitor = func(loaded float64) {
			m.reportProgress(ctx, loaded)
			if user != nil {
				user(loaded)
			}
		}
		s, err := m.runtime.Create(ctx, opts)
		if err != nil {
			return nil, err
		}
		m.CheckAvailability(ctx)
		return s, nil
	default:
		return m.runtime.Create(ctx, opts)
	}
}

func (m *Manager) reportProgress(ctx context.Context, loaded float64) {
	progress := model.ClampProgress(int(math.Round(loaded * 100)))

	m.mu.Lock()
	m.state = model.AvailabilityDownloading
	m.progress = progress
	m.mu.Unlock()

	m.publish(ctx, model.AvailabilityDownloading, progress, true)
}

// publish persists the state, then notifies listeners.
func (m *Manager) publish(ctx context.Context, a model.Availability, progress int, withProgress bool) {
	if m.store != nil {
		if err := m.store.SetAvailability(ctx, a); err != nil {
			m.logger.Warn("failed to persist availability", "error", err)
		}
		if withProgress {
			if err := m.store.SetDownloadProgress(ctx, progress); err != nil {
				m.logger.Warn("failed to persist download progress", "error", err)
			}
		}
	}

	m.listenersMu.Lock()
	ls := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.listenersMu.Unlock()

	for _, l := range ls {
		l(a, progress)
	}
}
