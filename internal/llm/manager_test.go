package llm

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/swiftguard/internal/model"
)

func TestManagerCheckAvailability(t *testing.T) {
	t.Parallel()

	t.Run("nil runtime is unavailable", func(t *testing.T) {
		t.Parallel()

		m := NewManager(nil)
		if got := m.CheckAvailability(context.Background()); got != model.AvailabilityUnavailable {
			t.Errorf("got %v", got)
		}
	})

	t.Run("downloadable settles to available after grace", func(t *testing.T) {
		t.Parallel()

		rt := &scriptedRuntime{script: []model.Availability{model.AvailabilityDownloadable, model.AvailabilityAvailable}}
		store := &recordingStore{}
		m := NewManager(rt, WithGracePeriod(time.Millisecond), WithStateStore(store))

		var published []model.Availability
		m.OnAvailabilityChange(func(a model.Availability, _ int) { published = append(published, a) })

		if got := m.CheckAvailability(context.Background()); got != model.AvailabilityAvailable {
			t.Fatalf("got %v, want available", got)
		}
		if !slices.Equal(published, []model.Availability{model.AvailabilityAvailable}) {
			t.Errorf("published = %v", published)
		}
		if !slices.Equal(store.states, []model.Availability{model.AvailabilityAvailable}) {
			t.Errorf("persisted = %v", store.states)
		}
	})

	t.Run("stable downloadable stays downloadable", func(t *testing.T) {
		t.Parallel()

		rt := &scriptedRuntime{script: []model.Availability{model.AvailabilityDownloadable}}
		m := NewManager(rt, WithGracePeriod(time.Millisecond))
		if got := m.CheckAvailability(context.Background()); got != model.AvailabilityDownloadable {
			t.Errorf("got %v", got)
		}
	})

	t.Run("query failure is unavailable and still broadcast", func(t *testing.T) {
		t.Parallel()

		rt := &scriptedRuntime{err: errors.New("connection refused")}
		m := NewManager(rt)
		calls := 0
		m.OnAvailabilityChange(func(model.Availability, int) { calls++ })

		if got := m.CheckAvailability(context.Background()); got != model.AvailabilityUnavailable {
			t.Errorf("got %v", got)
		}
		if calls != 1 {
			t.Errorf("listener called %d times", calls)
		}
	})

	t.Run("unsubscribe stops notifications", func(t *testing.T) {
		t.Parallel()

		m := NewManager(&scriptedRuntime{script: []model.Availability{model.AvailabilityAvailable}})
		calls := 0
		unsubscribe := m.OnAvailabilityChange(func(model.Availability, int) { calls++ })
		m.CheckAvailability(context.Background())
		unsubscribe()
		m.CheckAvailability(context.Background())
		if calls != 1 {
			t.Errorf("listener called %d times, want 1", calls)
		}
	})

	t.Run("persistence failure does not block broadcast", func(t *testing.T) {
		t.Parallel()

		m := NewManager(&scriptedRuntime{script: []model.Availability{model.AvailabilityAvailable}},
			WithStateStore(&recordingStore{fail: true}))
		calls := 0
		m.OnAvailabilityChange(func(model.Availability, int) { calls++ })
		m.CheckAvailability(context.Background())
		if calls != 1 {
			t.Errorf("listener called %d times", calls)
		}
	})
}

func TestManagerCreateSession(t *testing.T) {
	t.Parallel()

	t.Run("unavailable fails", func(t *testing.T) {
		t.Parallel()

		m := NewManager(&scriptedRuntime{script: []model.Availability{model.AvailabilityUnavailable}})
		if _, err := m.CreateSession(context.Background(), SessionOptions{}); !errors.Is(err, ErrModelUnavailable) {
			t.Errorf("err = %v, want ErrModelUnavailable", err)
		}
	})

	t.Run("downloading fails busy without creating", func(t *testing.T) {
		t.Parallel()

		rt := &scriptedRuntime{script: []model.Availability{model.AvailabilityDownloading}}
		m := NewManager(rt)
		if _, err := m.CreateSession(context.Background(), SessionOptions{}); !errors.Is(err, ErrModelBusy) {
			t.Errorf("err = %v, want ErrModelBusy", err)
		}
		if rt.creates != 0 {
			t.Errorf("runtime created %d sessions", rt.creates)
		}
	})

	t.Run("available creates directly with options", func(t *testing.T) {
		t.Parallel()

		rt := &scriptedRuntime{script: []model.Availability{model.AvailabilityAvailable}, answer: "ok"}
		m := NewManager(rt)
		s, err := m.CreateSession(context.Background(), SessionOptions{Temperature: 0.25, TopK: 3})
		if err != nil {
			t.Fatal(err)
		}
		if rt.lastOpts.TopK != 3 || rt.lastOpts.Monitor != nil {
			t.Errorf("options = %+v", rt.lastOpts)
		}
		if got, _ := s.Prompt(context.Background(), Prompt{Text: "hi"}); got != "ok" {
			t.Errorf("Prompt() = %q", got)
		}
	})

	t.Run("downloadable downloads with clamped progress", func(t *testing.T) {
		t.Parallel()

		rt := &scriptedRuntime{
			script: []model.Availability{
				model.AvailabilityDownloadable, // first check
				model.AvailabilityDownloadable, // grace re-check
				model.AvailabilityAvailable,    // after download
			},
			ticks: []float64{0, 0.426, 1, 1.2},
		}
		store := &recordingStore{}
		m := NewManager(rt, WithGracePeriod(time.Millisecond), WithStateStore(store))

		type event struct {
			a model.Availability
			p int
		}
		var events []event
		m.OnAvailabilityChange(func(a model.Availability, p int) { events = append(events, event{a, p}) })

		userTicks := 0
		if _, err := m.CreateSession(context.Background(), SessionOptions{Monitor: func(float64) { userTicks++ }}); err != nil {
			t.Fatal(err)
		}

		if !slices.Equal(store.progress, []int{0, 43, 100, 100}) {
			t.Errorf("persisted progress = %v", store.progress)
		}
		if userTicks != 4 {
			t.Errorf("caller monitor saw %d ticks", userTicks)
		}
		if last := events[len(events)-1]; last.a != model.AvailabilityAvailable {
			t.Errorf("final state = %v, want available", last.a)
		}
		if events[1].a != model.AvailabilityDownloading {
			t.Errorf("progress events must report downloading, got %v", events[1].a)
		}
		if a, p := m.State(); a != model.AvailabilityAvailable || p != 100 {
			t.Errorf("State() = %v %d", a, p)
		}
	})
}
