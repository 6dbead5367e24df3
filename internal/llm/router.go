package llm

import (
	"context"
	"log/slog"

	"github.com/nao1215/swiftguard/internal/model"
)

// Router sends a prompt to the cloud or on-device model according to the
// user's inference mode. Any failure on the cloud path is retried on the
// device without surfacing the cloud error.
type Router struct {
	cloud  Runtime
	local  SessionCreator
	logger *slog.Logger
}

// NewRouter creates a Router. cloud may be nil, in which case every mode
// runs on the device.
func NewRouter(local SessionCreator, cloud Runtime, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cloud: cloud, local: local, logger: logger}
}

// Generate runs p in a fresh session with opts.
func (r *Router) Generate(ctx context.Context, mode model.InferenceMode, opts SessionOptions, p Prompt) (string, error) {
	if mode == model.InferenceOnDevice || r.cloud == nil {
		return Run(ctx, r.local, opts, p)
	}

	text, err := r.generateCloud(ctx, opts, p)
	if err == nil {
		return text, nil
	}
	r.logger.Warn("cloud inference failed, falling back to on-device model", "mode", mode, "error", err)
	return Run(ctx, r.local, opts, p)
}

func (r *Router) generateCloud(ctx context.Context, opts SessionOptions, p Prompt) (string, error) {
	a, err := r.cloud.Availability(ctx)
	if err != nil {
		return "", err
	}
	if a != model.AvailabilityAvailable {
		return "", ErrModelUnavailable
	}
	opts.Monitor = nil
	s, err := r.cloud.Create(ctx, opts)
	if err != nil {
		return "", err
	}
	return s.Prompt(ctx, p)
}
