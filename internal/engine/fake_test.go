package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/swiftguard/internal/cache"
	"github.com/nao1215/swiftguard/internal/metadata"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/pipeline"
)

// fakeHost is an in-memory browser.
type fakeHost struct {
	mu       sync.Mutex
	tabs     map[int]Tab
	snapshot []byte
	captures int
	discards int
	armed    []string
	reloads  []int
	banners  []string
	popups   []int
}

func newFakeHost(tabs ...Tab) *fakeHost {
	h := &fakeHost{tabs: make(map[int]Tab), snapshot: []byte("\x89PNG")}
	for _, t := range tabs {
		h.tabs[t.ID] = t
	}
	return h
}

func (h *fakeHost) Tab(_ context.Context, id int) (Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tabs[id]
	if !ok {
		return Tab{}, ErrTabNotFound
	}
	return t, nil
}

func (h *fakeHost) ActiveTab(context.Context) (Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.tabs {
		if t.Active {
			return t, nil
		}
	}
	return Tab{}, ErrNoActiveTab
}

func (h *fakeHost) CaptureSnapshot(context.Context, int) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.captures++
	return h.snapshot, nil
}

// DiscardSnapshot makes the next capture return a new frame.
func (h *fakeHost) DiscardSnapshot(context.Context, int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.discards++
	h.snapshot = []byte(fmt.Sprintf("\x89PNG-%d", h.discards))
	return nil
}

func (h *fakeHost) ArmInterceptor(_ context.Context, _ int, chatbotType string, _ model.MonitoringMode) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armed = append(h.armed, chatbotType)
	return nil
}

func (h *fakeHost) ReloadTab(_ context.Context, id int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloads = append(h.reloads, id)
	return nil
}

func (h *fakeHost) InjectScamBanner(_ context.Context, _ int, reasoning string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.banners = append(h.banners, reasoning)
	return nil
}

func (h *fakeHost) OpenPopup(_ context.Context, id int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.popups = append(h.popups, id)
	return nil
}

func (h *fakeHost) counts() (armed, banners, popups int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.armed), len(h.banners), len(h.popups)
}

// fakeRunner scripts prepass labels and pipeline outcomes. A finalized run
// writes a Benign record for the pipeline it was asked to run.
type fakeRunner struct {
	store *cache.Store

	mu         sync.Mutex
	labels     []model.Pipeline
	prepassErr error
	outcomes   []pipeline.Outcome
	runErr     error
	release    chan struct{}
	ran        []model.Pipeline
	snapshots  [][]byte
}

func (r *fakeRunner) Prepass(context.Context, pipeline.Page) (model.Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prepassErr != nil {
		return "", r.prepassErr
	}
	if len(r.labels) == 0 {
		return model.PipelineScam, nil
	}
	l := r.labels[0]
	if len(r.labels) > 1 {
		r.labels = r.labels[1:]
	}
	return l, nil
}

func (r *fakeRunner) Run(ctx context.Context, p model.Pipeline, page pipeline.Page) (pipeline.Outcome, error) {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	r.ran = append(r.ran, p)
	r.snapshots = append(r.snapshots, page.Snapshot)
	outcome := pipeline.Finalized
	if len(r.outcomes) > 0 {
		outcome = r.outcomes[0]
		r.outcomes = r.outcomes[1:]
	}
	err := r.runErr
	r.mu.Unlock()

	if err != nil || outcome == pipeline.Rescan {
		return outcome, err
	}
	_, uerr := r.store.Update(ctx, page.Key, func(rec *model.PageRecord) {
		rec.Status = model.StatusComplete
		rec.Verdict = model.VerdictBenign
		rec.Pipeline = p
	})
	return outcome, uerr
}

func (r *fakeRunner) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.snapshots))
	for i, s := range r.snapshots {
		out[i] = string(s)
	}
	return out
}

func (r *fakeRunner) runs() []model.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Pipeline(nil), r.ran...)
}

// recordingNotifier collects broadcasts.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Publish(msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) has(action notify.Action) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.msgs {
		if m.Action == action {
			return true
		}
	}
	return false
}

type fixture struct {
	store    *cache.Store
	host     *fakeHost
	runner   *fakeRunner
	notifier *recordingNotifier
	engine   *Engine
}

func newFixture(t *testing.T, tabs ...Tab) *fixture {
	t.Helper()
	store := cache.New(cache.NewMemoryBackend())
	f := &fixture{
		store:    store,
		host:     newFakeHost(tabs...),
		runner:   &fakeRunner{store: store},
		notifier: &recordingNotifier{},
	}
	f.engine = New(f.store, f.runner, f.host,
		WithNotifier(f.notifier),
		WithDebounce(20*time.Millisecond),
		WithSnapshotDelay(time.Millisecond),
		WithRescanDelay(10*time.Millisecond),
	)
	t.Cleanup(func() { _ = f.engine.Close() })
	return f
}

func (f *fixture) record(t *testing.T, key string) *model.PageRecord {
	t.Helper()
	rec, err := f.store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q) error = %v", key, err)
	}
	return rec
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func request(url string) Request {
	return NewRequest(Tab{ID: 1, URL: url, Active: true})
}

func tab(id int, url string, active bool) Tab {
	return Tab{ID: id, URL: url, Active: active, Preview: metadata.Preview{}}
}
