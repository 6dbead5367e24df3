package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/swiftguard/internal/cache"
	"github.com/nao1215/swiftguard/internal/eventsink"
	"github.com/nao1215/swiftguard/internal/factcheck"
	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/metadata"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeSessions answers every prompt with answer.
type fakeSessions struct {
	mu      sync.Mutex
	answer  func(opts llm.SessionOptions, p llm.Prompt) (string, error)
	opts    []llm.SessionOptions
	prompts []llm.Prompt
}

func (f *fakeSessions) CreateSession(_ context.Context, opts llm.SessionOptions) (llm.Session, error) {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	return &fakeSession{f: f, opts: opts}, nil
}

func (f *fakeSessions) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeSession struct {
	f    *fakeSessions
	opts llm.SessionOptions
}

func (s *fakeSession) Prompt(_ context.Context, p llm.Prompt) (string, error) {
	s.f.mu.Lock()
	s.f.prompts = append(s.f.prompts, p)
	s.f.mu.Unlock()
	return s.f.answer(s.opts, p)
}

// fixedAnswer returns the same text for every prompt.
func fixedAnswer(text string) func(llm.SessionOptions, llm.Prompt) (string, error) {
	return func(llm.SessionOptions, llm.Prompt) (string, error) { return text, nil }
}

// fakeGenerator records the inference mode it was asked to honour.
type fakeGenerator struct {
	mode   model.InferenceMode
	answer string
	err    error
}

func (g *fakeGenerator) Generate(_ context.Context, mode model.InferenceMode, _ llm.SessionOptions, _ llm.Prompt) (string, error) {
	g.mode = mode
	return g.answer, g.err
}

// fakeSurface records side effects.
type fakeSurface struct {
	mu      sync.Mutex
	banners []string
	popups  []int
}

func (s *fakeSurface) InjectScamBanner(_ context.Context, _ int, reasoning string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banners = append(s.banners, reasoning)
	return nil
}

func (s *fakeSurface) OpenPopup(_ context.Context, tabID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.popups = append(s.popups, tabID)
	return nil
}

// fakeNotifier collects broadcasts.
type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *fakeNotifier) Publish(msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *fakeNotifier) actions() []notify.Action {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Action, 0, len(n.msgs))
	for _, m := range n.msgs {
		out = append(out, m.Action)
	}
	return out
}

func (n *fakeNotifier) last() notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.msgs[len(n.msgs)-1]
}

// fakeSearcher returns canned responses per query.
type fakeSearcher struct {
	results map[string]*factcheck.SearchResponse
	errs    map[string]error
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, query string) (*factcheck.SearchResponse, error) {
	s.queries = append(s.queries, query)
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	if r, ok := s.results[query]; ok {
		return r, nil
	}
	return &factcheck.SearchResponse{}, nil
}

// fakeSink records emitted events.
type fakeSink struct {
	err    error
	events []eventsink.Event
}

func (s *fakeSink) Emit(_ context.Context, _ model.Enrollment, ev eventsink.Event) error {
	s.events = append(s.events, ev)
	return s.err
}

type fixture struct {
	store    *cache.Store
	sessions *fakeSessions
	surface  *fakeSurface
	notifier *fakeNotifier
	searcher *fakeSearcher
	sink     *fakeSink
	runner   *Runner
}

func newFixture(t *testing.T, answer func(llm.SessionOptions, llm.Prompt) (string, error)) *fixture {
	t.Helper()
	f := &fixture{
		store:    cache.New(cache.NewMemoryBackend(), cache.WithClock(func() time.Time { return fixedNow })),
		sessions: &fakeSessions{answer: answer},
		surface:  &fakeSurface{},
		notifier: &fakeNotifier{},
		searcher: &fakeSearcher{},
		sink:     &fakeSink{},
	}
	f.runner = New(Deps{
		Store:     f.store,
		Sessions:  f.sessions,
		Notifier:  f.notifier,
		Surface:   f.surface,
		FactCheck: f.searcher,
		Events:    f.sink,
	}, WithClock(func() time.Time { return fixedNow }))
	return f
}

func (f *fixture) record(t *testing.T, key string) *model.PageRecord {
	t.Helper()
	rec, err := f.store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q) error = %v", key, err)
	}
	if rec == nil {
		t.Fatalf("no record for %q", key)
	}
	return rec
}

func (f *fixture) logPipelines(t *testing.T) []string {
	t.Helper()
	logs, err := f.store.LLMLogs(context.Background())
	if err != nil {
		t.Fatalf("LLMLogs() error = %v", err)
	}
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Pipeline)
	}
	return out
}

func testPage(url string) Page {
	return Page{
		TabID:    7,
		Key:      url,
		URL:      url,
		Snapshot: []byte("\x89PNG"),
		Preview:  metadata.Preview{Fields: map[string]string{"og:title": "Limited offer"}},
	}
}
