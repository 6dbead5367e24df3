package pipeline

import (
	"context"
	"fmt"

	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/prompt"
	"github.com/nao1215/swiftguard/internal/verdict"
)

// prepassOptions are the decoding settings for the page-type question.
var prepassOptions = llm.SessionOptions{Temperature: 0.25, TopK: 3, ExpectImage: true}

// Prepass asks the model what kind of page the snapshot shows and returns
// the pipeline for it.
//
// Without a snapshot it returns "" and no error; the caller treats that
// like an unlabelled page. A failed prompt is returned as an error wrapping
// ErrAnalysisFailure.
func (r *Runner) Prepass(ctx context.Context, page Page) (model.Pipeline, error) {
	if len(page.Snapshot) == 0 {
		return "", nil
	}

	text, err := r.prompt(ctx, string(model.PipelinePrepass), prepassOptions, llm.Prompt{
		Text:  prompt.Prepass(),
		Image: page.Snapshot,
	})
	if err != nil {
		return "", fmt.Errorf("%w: prepass: %w", ErrAnalysisFailure, err)
	}
	if text != "" {
		r.logResponse(ctx, string(model.PipelinePrepass), page, text)
	}

	label := verdict.Prepass(text)
	r.logger.Debug("prepass label", "key", page.Key, "label", label)
	return label.Pipeline(), nil
}
