package pipeline

import (
	"context"

	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/prompt"
	"github.com/nao1215/swiftguard/internal/verdict"
)

var ecommerceOptions = llm.SessionOptions{Temperature: 0.25, TopK: 3, ExpectImage: true}

// ecommerceHandler checks store pages for high-risk listings.
type ecommerceHandler struct {
	r *Runner
}

func (h *ecommerceHandler) Name() model.Pipeline { return model.PipelineEcommerce }

func (h *ecommerceHandler) Handle(ctx context.Context, page Page) (Outcome, error) {
	r := h.r
	r.analyzing(page, model.PipelineEcommerce)

	labeled, err := h.classify(ctx, page)
	if err != nil {
		r.logger.Warn("ecommerce analysis failed", "key", page.Key, "error", err)
		if ferr := r.finalize(ctx, page.Key, model.PipelineEcommerce, model.VerdictError, err.Error(), nil); ferr != nil {
			return Finalized, ferr
		}
		r.publish(notify.Message{
			Action:    notify.ActionScamVerdict,
			TabID:     page.TabID,
			Pipeline:  model.PipelineEcommerce,
			Verdict:   string(model.VerdictError),
			Reasoning: err.Error(),
		})
		return Finalized, nil
	}

	if labeled.Verdict == model.VerdictRescan {
		r.logger.Debug("store page not ready", "key", page.Key)
		return Rescan, nil
	}

	if err := r.finalize(ctx, page.Key, model.PipelineEcommerce, labeled.Verdict, labeled.Reasoning, nil); err != nil {
		return Finalized, err
	}
	r.publish(notify.Message{
		Action:    notify.ActionScamVerdict,
		TabID:     page.TabID,
		Pipeline:  model.PipelineEcommerce,
		Verdict:   string(labeled.Verdict),
		Reasoning: labeled.Reasoning,
	})
	if ShouldSurface(model.PipelineEcommerce, labeled.Verdict) {
		r.openPopup(ctx, page.TabID)
	}
	return Finalized, nil
}

func (h *ecommerceHandler) classify(ctx context.Context, page Page) (verdict.Labeled, error) {
	if len(page.Snapshot) == 0 {
		return verdict.Labeled{}, ErrNoSnapshot
	}
	text, err := h.r.prompt(ctx, string(model.PipelineEcommerce), ecommerceOptions, llm.Prompt{
		Text:  prompt.Ecommerce(page.Preview.Title()),
		Image: page.Snapshot,
	})
	if err != nil {
		return verdict.Labeled{}, err
	}
	h.r.logResponse(ctx, string(model.PipelineEcommerce), page, text)
	return verdict.Ecommerce(text), nil
}
