package llm

import (
	"context"

	"github.com/nao1215/swiftguard/internal/model"
)

// Runtime is a language model capability.
type Runtime interface {
	// Availability reports whether sessions can be created.
	Availability(ctx context.Context) (model.Availability, error)

	// Create starts a session. When opts.Monitor is set the runtime
	// downloads the model first and reports progress through it.
	Create(ctx context.Context, opts SessionOptions) (Session, error)
}

// Session answers prompts with fixed decoding options.
type Session interface {
	Prompt(ctx context.Context, p Prompt) (string, error)
}

// SessionOptions configures decoding for a session.
type SessionOptions struct {
	Temperature float64
	TopK        int

	// ExpectImage declares that prompts will carry a screenshot.
	ExpectImage bool

	// Monitor receives download progress as a fraction in [0, 1].
	Monitor func(loaded float64)
}

// Prompt is one user turn: instruction text and an optional PNG screenshot.
type Prompt struct {
	Text  string
	Image []byte
}

// SessionCreator creates sessions. Manager implements it.
type SessionCreator interface {
	CreateSession(ctx context.Context, opts SessionOptions) (Session, error)
}

// Run creates a session with opts and sends it a single prompt.
func Run(ctx context.Context, c SessionCreator, opts SessionOptions, p Prompt) (string, error) {
	s, err := c.CreateSession(ctx, opts)
	if err != nil {
		return "", err
	}
	return s.Prompt(ctx, p)
}
