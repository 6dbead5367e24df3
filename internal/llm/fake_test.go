package llm

import (
	"context"
	"errors"
	"sync"

	"github.com/nao1215/swiftguard/internal/model"
)

// scriptedRuntime returns availabilities from a script; the last one repeats.
type scriptedRuntime struct {
	mu        sync.Mutex
	script    []model.Availability
	err       error
	ticks     []float64
	createErr error
	answer    string
	creates   int
	prompts   []Prompt
	lastOpts  SessionOptions
}

func (r *scriptedRuntime) Availability(context.Context) (model.Availability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return model.AvailabilityUnavailable, r.err
	}
	a := r.script[0]
	if len(r.script) > 1 {
		r.script = r.script[1:]
	}
	return a, nil
}

func (r *scriptedRuntime) Create(_ context.Context, opts SessionOptions) (Session, error) {
	r.mu.Lock()
	r.creates++
	r.lastOpts = opts
	r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if opts.Monitor != nil {
		for _, t := range r.ticks {
			opts.Monitor(t)
		}
	}
	return &scriptedSession{r: r}, nil
}

type scriptedSession struct{ r *scriptedRuntime }

func (s *scriptedSession) Prompt(_ context.Context, p Prompt) (string, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.prompts = append(s.r.prompts, p)
	return s.r.answer, nil
}

type recordingStore struct {
	mu       sync.Mutex
	states   []model.Availability
	progress []int
	fail     bool
}

func (s *recordingStore) SetAvailability(_ context.Context, a model.Availability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.states = append(s.states, a)
	return nil
}

func (s *recordingStore) SetDownloadProgress(_ context.Context, p int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, p)
	return nil
}
