package pipeline

import (
	"context"
	"time"

	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/pagekey"
	"github.com/nao1215/swiftguard/internal/prompt"
	"github.com/nao1215/swiftguard/internal/verdict"
)

var scamOptions = llm.SessionOptions{Temperature: 0.25, TopK: 3, ExpectImage: true}

// scamHandler labels a page Scam, Marketing, Uncertain or Benign.
// It is the only handler that may use the cloud model.
type scamHandler struct {
	r *Runner
}

func (h *scamHandler) Name() model.Pipeline { return model.PipelineScam }

func (h *scamHandler) Handle(ctx context.Context, page Page) (Outcome, error) {
	r := h.r
	r.analyzing(page, model.PipelineScam)

	labeled, err := h.classify(ctx, page)
	if err != nil {
		r.logger.Warn("scam analysis failed", "key", page.Key, "error", err)
		if ferr := r.finalize(ctx, page.Key, model.PipelineScam, model.VerdictError, err.Error(), nil); ferr != nil {
			return Finalized, ferr
		}
		r.publish(notify.Message{
			Action:    notify.ActionScamVerdict,
			TabID:     page.TabID,
			Pipeline:  model.PipelineScam,
			Verdict:   string(model.VerdictError),
			Reasoning: err.Error(),
		})
		return Finalized, nil
	}

	if err := r.finalize(ctx, page.Key, model.PipelineScam, labeled.Verdict, labeled.Reasoning, nil); err != nil {
		return Finalized, err
	}

	surface := ShouldSurface(model.PipelineScam, labeled.Verdict)
	if surface && r.deps.Surface != nil {
		if err := r.deps.Surface.InjectScamBanner(ctx, page.TabID, labeled.Reasoning); err != nil {
			r.logger.Warn("failed to inject scam banner", "tab", page.TabID, "error", err)
		}
	}
	r.publish(notify.Message{
		Action:    notify.ActionScamVerdict,
		TabID:     page.TabID,
		Pipeline:  model.PipelineScam,
		Verdict:   string(labeled.Verdict),
		Reasoning: labeled.Reasoning,
	})
	if surface {
		r.openPopup(ctx, page.TabID)
	}
	return Finalized, nil
}

func (h *scamHandler) classify(ctx context.Context, page Page) (verdict.Labeled, error) {
	r := h.r
	if len(page.Snapshot) == 0 {
		return verdict.Labeled{}, ErrNoSnapshot
	}

	mode, err := r.deps.Store.InferenceMode(ctx)
	if err != nil {
		r.logger.Warn("failed to read inference mode", "error", err)
		mode = model.InferenceOnDevice
	}

	text := prompt.Scam(pagekey.MaskForPrompt(page.URL), page.Preview.Title())
	var answer string
	func() {
		defer r.metrics.ModelPrompt(string(model.PipelineScam), time.Now())
		if r.deps.Generator != nil {
			answer, err = r.deps.Generator.Generate(ctx, mode, scamOptions, llm.Prompt{Text: text, Image: page.Snapshot})
			return
		}
		answer, err = llm.Run(ctx, r.deps.Sessions, scamOptions, llm.Prompt{Text: text, Image: page.Snapshot})
	}()
	if err != nil {
		return verdict.Labeled{}, err
	}

	r.logResponse(ctx, string(model.PipelineScam), page, answer)
	return verdict.Scam(answer), nil
}
