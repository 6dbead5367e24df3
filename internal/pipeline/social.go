package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/nao1215/swiftguard/internal/eventsink"
	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/prompt"
	"github.com/nao1215/swiftguard/internal/verdict"
)

const (
	socialPlatform = "instagram"
	socialScanLog  = "social-instagram"
	socialSinkLog  = "social-sink-error"

	socialSkippedReasoning     = "Social media page (not analyzed)"
	socialNotEnrolledReasoning = "Instagram post (not enrolled in family)"
	socialClearedReasoning     = "Instagram post analyzed - no issues detected"
	socialFailureReasoning     = "Failed to analyze Instagram post"
)

var socialOptions = llm.SessionOptions{Temperature: 0.25, TopK: 3, ExpectImage: true}

// socialHandler scans photo posts for harmful content on behalf of an
// enrolled family. Other social pages are recorded without analysis.
type socialHandler struct {
	r *Runner
}

func (h *socialHandler) Name() model.Pipeline { return model.PipelineSocial }

// isPhotoPost reports whether rawURL is a single Instagram post.
func isPhotoPost(rawURL string) bool {
	return strings.Contains(rawURL, "instagram.com") && strings.Contains(rawURL, "/p/")
}

func (h *socialHandler) Handle(ctx context.Context, page Page) (Outcome, error) {
	r := h.r
	if !isPhotoPost(page.URL) || len(page.Snapshot) == 0 {
		return Finalized, r.finalize(ctx, page.Key, model.PipelineSocial, model.VerdictBenign, socialSkippedReasoning, nil)
	}

	enrollment, err := r.deps.Store.Enrollment(ctx)
	if err != nil {
		r.logger.Warn("failed to read enrollment", "error", err)
	}
	if !enrollment.Enrolled() {
		return Finalized, r.finalize(ctx, page.Key, model.PipelineSocial, model.VerdictSocialMedia, socialNotEnrolledReasoning, nil)
	}

	r.analyzing(page, model.PipelineSocial)
	text, err := r.prompt(ctx, socialScanLog, socialOptions, llm.Prompt{
		Text:  prompt.Social(),
		Image: page.Snapshot,
	})
	if err != nil {
		r.logger.Warn("photo post scan failed", "key", page.Key, "error", err)
		return Finalized, r.finalize(ctx, page.Key, model.PipelineSocial, model.VerdictError, socialFailureReasoning, nil)
	}
	r.logResponse(ctx, socialScanLog, page, text)

	scan := verdict.Social(text)
	flagged := !scan.Cleared
	if flagged {
		h.emit(ctx, enrollment, page, scan)
	}

	v, reasoning := model.VerdictSocialMedia, socialClearedReasoning
	if flagged {
		v, reasoning = model.VerdictWarning, scan.Summary
	}
	err = r.finalize(ctx, page.Key, model.PipelineSocialInstagramPost, v, reasoning, func(rec *model.PageRecord) {
		rec.SocialScan = &model.SocialScan{Flagged: flagged, Summary: scan.Summary}
	})
	if err != nil {
		return Finalized, err
	}

	if flagged {
		r.publish(notify.Message{
			Action:   notify.ActionSocialFlagged,
			TabID:    page.TabID,
			Pipeline: model.PipelineSocialInstagramPost,
			Platform: socialPlatform,
			Summary:  scan.Summary,
		})
	}
	return Finalized, nil
}

// emit reports a flagged post to the family event log. Failures are logged
// and never change the page verdict.
func (h *socialHandler) emit(ctx context.Context, enrollment model.Enrollment, page Page, scan verdict.Screening) {
	r := h.r
	if r.deps.Events == nil {
		return
	}
	err := r.deps.Events.Emit(ctx, enrollment, eventsink.Event{
		Type:           eventsink.TypeSocialMediaFlagged,
		Platform:       socialPlatform,
		URL:            page.URL,
		MessagePreview: page.URL,
		Summary:        scan.Summary,
		Analysis:       scan.Summary,
		Flagged:        true,
	})
	r.metrics.Event(string(eventsink.TypeSocialMediaFlagged), err)
	switch {
	case err == nil:
	case errors.Is(err, eventsink.ErrAuthFailure):
		r.logger.Warn("signed-in user does not match enrollment, event not sent", "key", page.Key)
	default:
		r.logger.Error("failed to emit family event", "key", page.Key, "error", err)
		r.logResponse(ctx, socialSinkLog, page, "Sink error: "+err.Error())
	}
}
