package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/swiftguard/internal/eventsink"
	"github.com/nao1215/swiftguard/internal/factcheck"
	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/metadata"
	"github.com/nao1215/swiftguard/internal/metrics"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
)

// Page is the input shared by every handler.
type Page struct {
	// TabID is the browser tab the page is shown in.
	TabID int

	// Key is the PageKey the record is stored under.
	Key string

	// URL is the raw navigation URL.
	URL string

	// Snapshot is a PNG screenshot of the visible viewport. It may be nil.
	Snapshot []byte

	// Preview holds the page's extracted metadata.
	Preview metadata.Preview
}

// Outcome tells the caller what to do after a handler returns.
type Outcome int

const (
	// Finalized means the handler wrote a terminal record.
	Finalized Outcome = iota

	// Rescan means the page was not ready; the record must be cleared and
	// the page processed again after a delay.
	Rescan
)

// String returns a readable name for the outcome.
func (o Outcome) String() string {
	if o == Rescan {
		return "rescan"
	}
	return "finalized"
}

// Handler analyzes a page for one pipeline.
type Handler interface {
	// Handle runs the pipeline and writes its terminal record.
	Handle(ctx context.Context, page Page) (Outcome, error)

	// Name returns the pipeline the handler serves.
	Name() model.Pipeline
}

// Store is the part of the record cache used by handlers. cache.Store
// implements it.
type Store interface {
	Update(ctx context.Context, key string, mutate func(*model.PageRecord)) (*model.PageRecord, error)
	AppendLLMLog(ctx context.Context, entry model.LLMLogEntry)
	InferenceMode(ctx context.Context) (model.InferenceMode, error)
	Enrollment(ctx context.Context) (model.Enrollment, error)
}

// Surface performs the visible side effects a verdict can trigger.
type Surface interface {
	InjectScamBanner(ctx context.Context, tabID int, reasoning string) error
	OpenPopup(ctx context.Context, tabID int) error
}

// Generator runs a prompt honouring the inference mode. llm.Router
// implements it.
type Generator interface {
	Generate(ctx context.Context, mode model.InferenceMode, opts llm.SessionOptions, p llm.Prompt) (string, error)
}

// Searcher looks up fact-check reviews. factcheck.Client implements it.
type Searcher interface {
	Search(ctx context.Context, query string) (*factcheck.SearchResponse, error)
}

// Deps are the collaborators shared by the handlers.
type Deps struct {
	Store     Store
	Sessions  llm.SessionCreator
	Generator Generator
	Notifier  notify.Publisher
	Surface   Surface

	// FactCheck may be nil, in which case news pages get no reviews.
	FactCheck Searcher

	// Events may be nil, in which case flagged posts are only recorded.
	Events eventsink.Sink
}

// Runner routes pages to their handlers.
type Runner struct {
	deps     Deps
	handlers map[model.Pipeline]Handler
	order    []model.Pipeline
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option is a function that configures a Runner.
type Option func(*Runner)

// WithLogger sets a custom logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMetrics records verdicts and model latency on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithClock overrides the time source used for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a Runner with the scam, ecommerce, news and social handlers
// registered.
func New(deps Deps, opts ...Option) *Runner {
	r := &Runner{
		deps:     deps,
		handlers: make(map[model.Pipeline]Handler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.AddHandler(&scamHandler{r: r})
	r.AddHandler(&ecommerceHandler{r: r})
	r.AddHandler(&newsHandler{r: r})
	r.AddHandler(&socialHandler{r: r})
	return r
}

// AddHandler registers h, replacing any handler with the same name.
func (r *Runner) AddHandler(h Handler) {
	if _, ok := r.handlers[h.Name()]; !ok {
		r.order = append(r.order, h.Name())
	}
	r.handlers[h.Name()] = h
}

// HandlerNames returns the registered pipelines in registration order.
func (r *Runner) HandlerNames() []model.Pipeline {
	return append([]model.Pipeline(nil), r.order...)
}

// Run sends page to the handler for p. Both social pipelines are served by
// the social handler; any pipeline without a handler falls back to scam.
func (r *Runner) Run(ctx context.Context, p model.Pipeline, page Page) (Outcome, error) {
	if p == model.PipelineSocialInstagramPost {
		p = model.PipelineSocial
	}
	h, ok := r.handlers[p]
	if !ok {
		h, ok = r.handlers[model.PipelineScam]
		if !ok {
			return Finalized, fmt.Errorf("no handler for pipeline %q", p)
		}
	}

	r.logger.Debug("running pipeline", "pipeline", h.Name(), "key", page.Key)
	outcome, err := h.Handle(ctx, page)
	if err != nil {
		r.logger.Error("pipeline failed",
			"pipeline", h.Name(),
			"key", page.Key,
			"error", err,
		)
		return outcome, fmt.Errorf("pipeline %s: %w", h.Name(), err)
	}
	return outcome, nil
}

// ShouldSurface reports whether a verdict from pipeline p opens the popup.
// News verdicts are judged by model.NewsVerdict.Surfaces instead.
func ShouldSurface(p model.Pipeline, v model.Verdict) bool {
	switch p {
	case model.PipelineScam:
		return v == model.VerdictScam
	case model.PipelineEcommerce:
		return v == model.VerdictWarning
	default:
		return false
	}
}

// finalize writes the terminal fields of a record. extra may adjust the
// record further inside the same update.
func (r *Runner) finalize(ctx context.Context, key string, p model.Pipeline, v model.Verdict, reasoning string, extra func(*model.PageRecord)) error {
	// The terminal write must land even when the episode was cancelled.
	_, err := r.deps.Store.Update(context.WithoutCancel(ctx), key, func(rec *model.PageRecord) {
		rec.Status = model.StatusComplete
		rec.Pipeline = p
		rec.Verdict = v
		rec.Reasoning = reasoning
		if extra != nil {
			extra(rec)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to store verdict for %s: %w", key, err)
	}
	r.metrics.Verdict(string(p), string(v))
	r.logger.Info("page classified",
		"pipeline", p,
		"verdict", v,
		"key", key,
	)
	return nil
}

// prompt runs a single on-device prompt and records its latency.
func (r *Runner) prompt(ctx context.Context, name string, opts llm.SessionOptions, p llm.Prompt) (string, error) {
	defer r.metrics.ModelPrompt(name, time.Now())
	return llm.Run(ctx, r.deps.Sessions, opts, p)
}

// logResponse keeps a raw model answer for the diagnostics view.
func (r *Runner) logResponse(ctx context.Context, name string, page Page, text string) {
	r.deps.Store.AppendLLMLog(ctx, model.LLMLogEntry{
		Pipeline:  name,
		Key:       page.Key,
		URL:       page.URL,
		Text:      text,
		Timestamp: r.now(),
	})
}

func (r *Runner) publish(msg notify.Message) {
	if r.deps.Notifier != nil {
		r.deps.Notifier.Publish(msg)
	}
}

func (r *Runner) analyzing(page Page, p model.Pipeline) {
	r.publish(notify.Message{Action: notify.ActionAnalyzing, TabID: page.TabID, Pipeline: p})
}

func (r *Runner) openPopup(ctx context.Context, tabID int) {
	if r.deps.Surface == nil {
		return
	}
	if err := r.deps.Surface.OpenPopup(ctx, tabID); err != nil {
		r.logger.Warn("failed to open popup", "tab", tabID, "error", err)
	}
}
