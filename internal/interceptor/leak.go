package interceptor

import (
	"context"
	"time"

	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/prompt"
	"github.com/nao1215/swiftguard/internal/verdict"
)

const leakLog = "promptguard"

var leakOptions = llm.SessionOptions{Temperature: 0, TopK: 1}

// Decision outcomes counted by metrics.
const (
	outcomeProceed = "proceed"
	outcomeBlocked = "blocked"
	outcomeError   = "error"
)

// AnalyzePrompt is the leak-prevention analyzer. It blocks a message that
// contains real sensitive data and fails open on any internal error.
// Outside the promptguard mode every message proceeds unanalyzed.
func (i *Interceptor) AnalyzePrompt(ctx context.Context, req Request) model.Decision {
	mode, err := i.deps.Store.MonitoringMode(ctx)
	if err != nil {
		i.logger.Warn("failed to read monitoring mode", "error", err)
		mode = model.DefaultMonitoringMode
	}
	if mode != model.MonitoringPromptGuard {
		return model.Decision{Proceed: true, Cleared: true}
	}

	d := i.analyzeLeak(ctx, req)
	switch {
	case d.Error != "":
		i.metrics.Decision(string(mode), outcomeError)
	case d.Proceed:
		i.metrics.Decision(string(mode), outcomeProceed)
	default:
		i.metrics.Decision(string(mode), outcomeBlocked)
	}
	return d
}

func (i *Interceptor) analyzeLeak(ctx context.Context, req Request) model.Decision {
	i.publish(notify.Message{
		Action:   notify.ActionPromptGuardAnalyzing,
		TabID:    req.TabID,
		Platform: req.Platform,
	})

	var (
		text string
		err  error
	)
	func() {
		defer i.metrics.ModelPrompt(leakLog, time.Now())
		text, err = llm.Run(ctx, i.deps.Sessions, leakOptions, llm.Prompt{Text: prompt.PromptGuard(req.Message)})
	}()
	if err != nil {
		i.logger.Warn("leak analysis failed, letting message through", "platform", req.Platform, "error", err)
		return model.Decision{Proceed: true, Cleared: false, Error: err.Error()}
	}
	i.logResponse(ctx, leakLog, req.Platform, text)

	leak := verdict.LeakCheck(text)
	if leak.Cleared {
		return model.Decision{Proceed: true, Cleared: true}
	}

	state := model.PromptGuardState{
		Reasoning: leak.Reasoning,
		Platform:  req.Platform,
		Timestamp: i.now(),
	}
	if err := i.deps.Store.SetPromptGuardState(ctx, state); err != nil {
		i.logger.Warn("failed to store block reasoning", "error", err)
	}
	i.publish(notify.Message{
		Action:    notify.ActionPromptGuardFlagged,
		TabID:     req.TabID,
		Reasoning: leak.Reasoning,
		Platform:  req.Platform,
	})
	if i.deps.Popup != nil {
		if err := i.deps.Popup.OpenPopup(ctx, req.TabID); err != nil {
			i.logger.Warn("failed to open popup", "tab", req.TabID, "error", err)
		}
	}
	return model.Decision{Proceed: false, Cleared: false}
}
