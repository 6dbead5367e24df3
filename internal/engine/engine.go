package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/swiftguard/internal/cache"
	"github.com/nao1215/swiftguard/internal/metrics"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/pipeline"
)

// Default timings.
const (
	// DefaultDebounce coalesces rapid navigation events into one run.
	DefaultDebounce = 3 * time.Second

	// DefaultSnapshotDelay is when the snapshot is taken after navigation.
	DefaultSnapshotDelay = time.Second

	// DefaultRescanDelay is the wait before retrying a page that was not ready.
	DefaultRescanDelay = 2 * time.Second
)

// Store is the part of the record cache the engine uses. cache.Store
// implements it.
type Store interface {
	Get(ctx context.Context, key string) (*model.PageRecord, error)
	Update(ctx context.Context, key string, mutate func(*model.PageRecord)) (*model.PageRecord, error)
	Delete(ctx context.Context, key string) error
	BeginProcessing(ctx context.Context, key string, seed model.PageRecord) (cache.Admission, *model.PageRecord, error)
	MonitoringMode(ctx context.Context) (model.MonitoringMode, error)
}

// Runner executes content pipelines. pipeline.Runner implements it.
type Runner interface {
	Prepass(ctx context.Context, page pipeline.Page) (model.Pipeline, error)
	Run(ctx context.Context, p model.Pipeline, page pipeline.Page) (pipeline.Outcome, error)
}

// Engine is the page-processing orchestrator.
type Engine struct {
	store    Store
	runner   Runner
	host     Host
	notifier notify.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	debounce      time.Duration
	snapshotDelay time.Duration
	rescanDelay   time.Duration

	// ctx scopes work started by timers; it is cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	closed         bool
	snapshots      map[string][]byte
	debounceTimers map[int]*time.Timer
	pending        map[*time.Timer]struct{}
}

// Option is a function that configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithNotifier sets the broadcast channel for observer notifications.
func WithNotifier(n notify.Publisher) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithMetrics records episodes and coalesced requests on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.debounce = d
		}
	}
}

// WithSnapshotDelay overrides DefaultSnapshotDelay.
func WithSnapshotDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.snapshotDelay = d
		}
	}
}

// WithRescanDelay overrides DefaultRescanDelay.
func WithRescanDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.rescanDelay = d
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine. Call Close to stop pending timers.
func New(store Store, runner Runner, host Host, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:          store,
		runner:         runner,
		host:           host,
		now:            time.Now,
		debounce:       DefaultDebounce,
		snapshotDelay:  DefaultSnapshotDelay,
		rescanDelay:    DefaultRescanDelay,
		ctx:            ctx,
		cancel:         cancel,
		snapshots:      make(map[string][]byte),
		debounceTimers: make(map[int]*time.Timer),
		pending:        make(map[*time.Timer]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Close stops every pending timer, cancels in-flight timer work and waits
// for it to return.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for t := range e.pending {
		if t.Stop() {
			e.wg.Done()
		}
	}
	e.pending = make(map[*time.Timer]struct{})
	e.debounceTimers = make(map[int]*time.Timer)
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	return nil
}

// episodeContext detaches an episode from its caller's cancellation. The
// episode still ends when the engine is closed.
func (e *Engine) episodeContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(e.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// noTab marks a timer that is not a tab's debounce timer.
const noTab = -1

// after runs fn in its own goroutine once d has elapsed. The returned timer
// is tracked so Close can stop it.
func (e *Engine) after(d time.Duration, fn func(ctx context.Context)) *time.Timer {
	return e.schedule(d, noTab, fn)
}

// schedule is after with an optional tab whose debounce slot the timer
// occupies until it fires.
func (e *Engine) schedule(d time.Duration, debounceTab int, fn func(ctx context.Context)) *time.Timer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}

	e.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		defer e.wg.Done()
		e.mu.Lock()
		delete(e.pending, t)
		if debounceTab != noTab && e.debounceTimers[debounceTab] == t {
			delete(e.debounceTimers, debounceTab)
		}
		e.mu.Unlock()
		fn(e.ctx)
	})
	e.pending[t] = struct{}{}
	if debounceTab != noTab {
		e.debounceTimers[debounceTab] = t
	}
	return t
}

// stop cancels a timer created by after.
func (e *Engine) stop(t *time.Timer) {
	if t == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[t]; !ok {
		return
	}
	if t.Stop() {
		delete(e.pending, t)
		e.wg.Done()
	}
}

// Snapshot returns the stored snapshot for key, if any.
func (e *Engine) Snapshot(key string) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.snapshots[key]
	return s, ok
}

// SetSnapshot stores png as the snapshot for key.
func (e *Engine) SetSnapshot(key string, png []byte) {
	if len(png) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshots[key] = png
}

// discardSnapshot forgets the snapshot for key here and in the host, so
// the next capture is a new one.
func (e *Engine) discardSnapshot(ctx context.Context, tabID int, key string) {
	e.mu.Lock()
	delete(e.snapshots, key)
	e.mu.Unlock()

	if err := e.host.DiscardSnapshot(ctx, tabID); err != nil {
		e.logger.Warn("failed to discard host snapshot", "tab", tabID, "error", err)
	}
}

// captureSnapshot asks the host for a fresh snapshot and stores it.
func (e *Engine) captureSnapshot(ctx context.Context, tabID int, key string) []byte {
	png, err := e.host.CaptureSnapshot(ctx, tabID)
	if err != nil {
		e.logger.Warn("snapshot capture failed", "tab", tabID, "error", err)
		return nil
	}
	e.SetSnapshot(key, png)
	return png
}

// snapshotFor returns the stored snapshot for key, capturing one if missing.
func (e *Engine) snapshotFor(ctx context.Context, tabID int, key string) []byte {
	if png, ok := e.Snapshot(key); ok {
		return png
	}
	return e.captureSnapshot(ctx, tabID, key)
}

func (e *Engine) publish(msg notify.Message) {
	if e.notifier != nil {
		e.notifier.Publish(msg)
	}
}
