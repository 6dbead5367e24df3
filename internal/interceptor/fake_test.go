package interceptor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/swiftguard/internal/cache"
	"github.com/nao1215/swiftguard/internal/eventsink"
	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeSessions answers every prompt with answer and counts calls.
type fakeSessions struct {
	mu      sync.Mutex
	answer  string
	err     error
	opts    []llm.SessionOptions
	prompts []llm.Prompt
}

func (f *fakeSessions) CreateSession(_ context.Context, opts llm.SessionOptions) (llm.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = append(f.opts, opts)
	return &fakeSession{f: f}, nil
}

func (f *fakeSessions) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeSession struct {
	f *fakeSessions
}

func (s *fakeSession) Prompt(_ context.Context, p llm.Prompt) (string, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.prompts = append(s.f.prompts, p)
	return s.f.answer, s.f.err
}

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

type fakePopup struct {
	tabs []int
}

func (p *fakePopup) OpenPopup(_ context.Context, tabID int) error {
	p.tabs = append(p.tabs, tabID)
	return nil
}

type fakeSink struct {
	err         error
	enrollments []model.Enrollment
	events      []eventsink.Event
}

func (s *fakeSink) Emit(_ context.Context, enrollment model.Enrollment, ev eventsink.Event) error {
	s.enrollments = append(s.enrollments, enrollment)
	s.events = append(s.events, ev)
	return s.err
}

type fixture struct {
	store       *cache.Store
	sessions    *fakeSessions
	notifier    *fakeNotifier
	popup       *fakePopup
	sink        *fakeSink
	interceptor *Interceptor
}

func newFixture(t *testing.T, answer string) *fixture {
	t.Helper()
	f := &fixture{
		store:    cache.New(cache.NewMemoryBackend(), cache.WithClock(func() time.Time { return fixedNow })),
		sessions: &fakeSessions{answer: answer},
		notifier: &fakeNotifier{},
		popup:    &fakePopup{},
		sink:     &fakeSink{},
	}
	f.interceptor = New(Deps{
		Store:    f.store,
		Sessions: f.sessions,
		Notifier: f.notifier,
		Popup:    f.popup,
		Events:   f.sink,
	}, WithClock(func() time.Time { return fixedNow }))
	return f
}

func (f *fixture) setMode(t *testing.T, mode model.MonitoringMode) {
	t.Helper()
	if err := f.store.SetMonitoringMode(context.Background(), mode); err != nil {
		t.Fatalf("SetMonitoringMode() error = %v", err)
	}
}

func (f *fixture) enroll(t *testing.T) {
	t.Helper()
	err := f.store.SetEnrollment(context.Background(), model.Enrollment{FamilyID: "fam1", FamilyUserID: "kid1"})
	if err != nil {
		t.Fatalf("SetEnrollment() error = %v", err)
	}
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
