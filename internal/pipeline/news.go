package pipeline

import (
	"context"
	"fmt"

	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/prompt"
	"github.com/nao1215/swiftguard/internal/verdict"
)

const (
	// maxReviews caps the reviews kept from one lookup.
	maxReviews = 3

	newsReasoning        = "News article detected"
	newsFailureReasoning = "Unable to run fact-check search"
	newsVerdictLog       = "news-verdict"
)

var (
	newsOptions        = llm.SessionOptions{Temperature: 0.2, TopK: 3, ExpectImage: true}
	newsVerdictOptions = llm.SessionOptions{Temperature: 0, TopK: 1}
)

// newsHandler extracts search phrases from an article, looks them up in the
// fact-check service and asks the model whether the reviews debunk the
// headline. The record verdict is always Benign; the fact-check outcome is
// carried in the news payload.
type newsHandler struct {
	r *Runner
}

func (h *newsHandler) Name() model.Pipeline { return model.PipelineNews }

func (h *newsHandler) Handle(ctx context.Context, page Page) (Outcome, error) {
	r := h.r
	r.analyzing(page, model.PipelineNews)

	result, err := h.factCheck(ctx, page)
	if err != nil {
		r.logger.Warn("news fact-check failed", "key", page.Key, "error", err)
		return Finalized, r.finalize(ctx, page.Key, model.PipelineNews, model.VerdictUncertain, newsFailureReasoning, nil)
	}

	r.logResponse(ctx, string(model.PipelineNews), page, result.RawResponse)
	if result.VerdictRawText != "" {
		r.logResponse(ctx, newsVerdictLog, page, result.VerdictRawText)
	}

	err = r.finalize(ctx, page.Key, model.PipelineNews, model.VerdictBenign, newsReasoning, func(rec *model.PageRecord) {
		rec.News = result
	})
	if err != nil {
		return Finalized, err
	}

	r.publish(notify.Message{
		Action:     notify.ActionNewsFactCheck,
		TabID:      page.TabID,
		Pipeline:   model.PipelineNews,
		Phrase:     result.PhraseUsed,
		Reviews:    result.Reviews,
		Verdict:    string(result.Verdict),
		Reasoning:  result.Reasoning,
		ClaimTitle: result.ClaimTitle,
	})
	if result.Verdict.Surfaces() {
		r.openPopup(ctx, page.TabID)
	}
	return Finalized, nil
}

// factCheck runs both model stages and the lookups between them.
func (h *newsHandler) factCheck(ctx context.Context, page Page) (*model.NewsResult, error) {
	r := h.r
	if len(page.Snapshot) == 0 {
		return nil, ErrNoSnapshot
	}

	raw, err := r.prompt(ctx, string(model.PipelineNews), newsOptions, llm.Prompt{
		Text:  prompt.News(),
		Image: page.Snapshot,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailure, err)
	}

	result := &model.NewsResult{
		Phrases:     verdict.NewsPhrases(raw),
		Reviews:     []model.Review{},
		RawResponse: raw,
	}
	headline := verdict.NewsHeadline(raw)

	for _, phrase := range result.Phrases {
		reviews, err := h.lookup(ctx, phrase)
		if err != nil {
			r.logger.Warn("fact-check lookup failed", "phrase", phrase, "error", err)
			continue
		}
		if len(reviews) > 0 {
			result.Reviews = reviews
			result.PhraseUsed = phrase
			break
		}
	}
	if result.PhraseUsed == "" && len(result.Phrases) > 0 {
		result.PhraseUsed = result.Phrases[0]
	}

	pageTitle := page.Preview.Title()
	if len(result.Reviews) > 0 {
		subject := firstNonEmpty(headline, pageTitle, result.PhraseUsed)
		text, err := r.prompt(ctx, newsVerdictLog, newsVerdictOptions, llm.Prompt{
			Text: prompt.NewsVerdict(subject, result.Reviews),
		})
		if err != nil {
			r.logger.Warn("news verdict prompt failed", "key", page.Key, "error", err)
		} else {
			result.Verdict, result.Reasoning = verdict.NewsVerdict(text)
			result.VerdictRawText = text
		}
	}
	result.ClaimTitle = firstNonEmpty(headline, pageTitle)
	return result, nil
}

func (h *newsHandler) lookup(ctx context.Context, phrase string) ([]model.Review, error) {
	if h.r.deps.FactCheck == nil {
		return nil, nil
	}
	resp, err := h.r.deps.FactCheck.Search(ctx, phrase)
	h.r.metrics.Lookup(err)
	if err != nil {
		return nil, err
	}
	return resp.Reviews(maxReviews), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
