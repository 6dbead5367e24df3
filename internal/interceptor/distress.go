package interceptor

import (
	"context"
	"errors"
	"time"

	"github.com/nao1215/swiftguard/internal/eventsink"
	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/prompt"
	"github.com/nao1215/swiftguard/internal/verdict"
)

const (
	distressLog      = "familycenter"
	distressSinkLog  = "familycenter-sink-error"
	distressErrorLog = "familycenter-analysis-error"

	// Lengths of the message excerpts kept locally and sent to the family.
	familyLogMessageLimit = 500
	eventPreviewLimit     = 200
)

var distressOptions = llm.SessionOptions{Temperature: 0, TopK: 1}

// AnalyzeFamilyCenter is the distress analyzer. The message always
// proceeds; a flagged message is reported to the enrolled family.
func (i *Interceptor) AnalyzeFamilyCenter(ctx context.Context, req Request) model.Decision {
	var (
		text string
		err  error
	)
	func() {
		defer i.metrics.ModelPrompt(distressLog, time.Now())
		text, err = llm.Run(ctx, i.deps.Sessions, distressOptions, llm.Prompt{Text: prompt.Distress(req.Message)})
	}()
	if err != nil {
		platform := req.Platform
		if platform == "" {
			platform = "unknown"
		}
		i.logger.Warn("distress analysis failed", "platform", platform, "error", err)
		i.logResponse(ctx, distressErrorLog, platform, "Error: "+err.Error())
		i.metrics.Decision(string(model.MonitoringFamilyCenter), outcomeError)
		return model.Decision{Proceed: true, Cleared: false, Error: err.Error()}
	}
	i.logResponse(ctx, distressLog, req.Platform, text)

	scan := verdict.Distress(text)
	flagged := !scan.Cleared
	i.deps.Store.AppendFamilyCenterLog(ctx, model.FamilyCenterLogEntry{
		Platform:  req.Platform,
		Message:   truncate(req.Message, familyLogMessageLimit),
		Analysis:  scan.Summary,
		Timestamp: i.now(),
		Flagged:   flagged,
	})

	if flagged {
		i.report(ctx, req, scan)
	}
	i.metrics.Decision(string(model.MonitoringFamilyCenter), outcomeProceed)
	return model.Decision{Proceed: true, Cleared: scan.Cleared, Logged: true}
}

// report sends a flagged message to the family event log. Failures are
// logged and never block the message.
func (i *Interceptor) report(ctx context.Context, req Request, scan verdict.Screening) {
	if i.deps.Events == nil {
		return
	}
	enrollment, err := i.deps.Store.Enrollment(ctx)
	if err != nil {
		i.logger.Warn("failed to read enrollment", "error", err)
		return
	}
	if !enrollment.Enrolled() {
		return
	}

	err = i.deps.Events.Emit(ctx, enrollment, eventsink.Event{
		Type:           eventsink.TypeDistressDetected,
		Platform:       req.Platform,
		MessagePreview: truncate(req.Message, eventPreviewLimit),
		Analysis:       scan.Summary,
		Reasoning:      scan.Reasoning,
		Flagged:        true,
	})
	i.metrics.Event(string(eventsink.TypeDistressDetected), err)
	switch {
	case err == nil:
	case errors.Is(err, eventsink.ErrAuthFailure):
		i.logger.Warn("signed-in user does not match enrollment, event not sent", "platform", req.Platform)
	default:
		i.logger.Error("failed to emit family event", "platform", req.Platform, "error", err)
		i.logResponse(ctx, distressSinkLog, req.Platform, "Sink error: "+err.Error())
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
