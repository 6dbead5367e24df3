package engine

import (
	"context"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/swiftguard/internal/cache"
	"github.com/nao1215/swiftguard/internal/metadata"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/pagekey"
	"github.com/nao1215/swiftguard/internal/pipeline"
	"github.com/nao1215/swiftguard/internal/rules"
)

// excludedReasoning is stored for pages the rules skip.
const excludedReasoning = "Excluded domain"

// Request identifies one page to classify.
type Request struct {
	TabID   int
	URL     string
	Key     string
	Preview metadata.Preview
}

// NewRequest derives the PageKey for a tab.
func NewRequest(tab Tab) Request {
	key, _ := pagekey.Derive(tab.URL, tab.Preview)
	return Request{TabID: tab.ID, URL: tab.URL, Key: key, Preview: tab.Preview}
}

func (r Request) page(snapshot []byte) pipeline.Page {
	return pipeline.Page{
		TabID:    r.TabID,
		Key:      r.Key,
		URL:      r.URL,
		Snapshot: snapshot,
		Preview:  r.Preview,
	}
}

func (r Request) keySource() model.KeySource {
	if r.Preview.CanonicalURL() != "" {
		return model.KeySourceOGURL
	}
	return model.KeySourceURL
}

// ProcessPage runs one classification episode for req.
//
// A complete record is replayed with the CheckAndInjectBanner rules without
// calling the model. A processing record only has its counter bumped.
// Otherwise a processing record is written and the page goes through the
// rules, the model prepass and finally its pipeline, which writes the
// terminal record. The returned error reports storage failures only.
//
// Cancelling ctx does not interrupt the episode. Closing the engine does,
// and still leaves an Error record behind.
func (e *Engine) ProcessPage(ctx context.Context, req Request) error {
	ctx, cancel := e.episodeContext(ctx)
	defer cancel()

	seed := model.PageRecord{
		Status:    model.StatusProcessing,
		Count:     1,
		Timestamp: e.now(),
		Pipeline:  model.PipelinePrepass,
		KeySource: req.keySource(),
		Meta:      req.Preview.Clone(),
	}
	admission, rec, err := e.store.BeginProcessing(ctx, req.Key, seed)
	if err != nil {
		return fmt.Errorf("failed to begin processing %s: %w", req.Key, err)
	}

	switch admission {
	case cache.Completed:
		e.logger.Debug("already processed", "key", req.Key)
		e.replay(ctx, req.TabID, req.Key, rec)
		return nil
	case cache.Coalesced:
		e.metrics.Coalesced()
		e.logger.Debug("processing already in progress", "key", req.Key, "count", rec.Count)
		return nil
	}

	e.metrics.EpisodeStarted()
	defer e.metrics.EpisodeFinished()

	e.publish(notify.Message{Action: notify.ActionAnalyzing, TabID: req.TabID, Pipeline: model.PipelinePrepass})

	if err := e.classify(ctx, req); err != nil {
		e.abandon(ctx, req.Key, err)
		return err
	}
	return nil
}

// classify picks the pipeline for an admitted request and runs it.
func (e *Engine) classify(ctx context.Context, req Request) error {
	p, matched := rules.Classify(req.URL, req.Preview)
	switch {
	case matched && p.IsChatbot():
		return e.handleChatbotPage(ctx, req, p)
	case matched && p == model.PipelineExclude:
		_, err := e.store.Update(ctx, req.Key, func(rec *model.PageRecord) {
			rec.Status = model.StatusComplete
			rec.Verdict = model.VerdictBenign
			rec.Reasoning = excludedReasoning
			rec.Pipeline = model.PipelineExclude
		})
		return err
	}

	if !matched {
		snap := e.snapshotFor(ctx, req.TabID, req.Key)
		label, err := e.runner.Prepass(ctx, req.page(snap))
		switch {
		case err != nil:
			e.logger.Warn("prepass failed, using scam pipeline", "key", req.Key, "error", err)
			p = model.PipelineScam
		case label == model.PipelineRescan:
			return e.handleRescan(ctx, req)
		default:
			p = label
		}
	}

	snap := e.snapshotFor(ctx, req.TabID, req.Key)
	outcome, err := e.runner.Run(ctx, p, req.page(snap))
	if err != nil {
		return err
	}
	if outcome == pipeline.Rescan {
		return e.handleRescan(ctx, req)
	}
	return nil
}

// abandon finalizes a record whose episode failed before a pipeline could,
// so it never stays in processing.
func (e *Engine) abandon(ctx context.Context, key string, cause error) {
	e.logger.Error("classification failed", "key", key, "error", cause)
	_, err := e.store.Update(context.WithoutCancel(ctx), key, func(rec *model.PageRecord) {
		if rec.Status != model.StatusProcessing {
			return
		}
		rec.Status = model.StatusComplete
		rec.Verdict = model.VerdictError
		rec.Reasoning = cause.Error()
	})
	if err != nil {
		e.logger.Error("failed to finalize abandoned record", "key", key, "error", err)
	}
}

// handleRescan clears the record and snapshot and schedules a new episode.
func (e *Engine) handleRescan(ctx context.Context, req Request) error {
	e.logger.Info("page not fully loaded, retrying", "key", req.Key, "delay", e.rescanDelay)
	if err := e.store.Delete(ctx, req.Key); err != nil {
		return fmt.Errorf("failed to clear record for rescan: %w", err)
	}
	e.discardSnapshot(ctx, req.TabID, req.Key)

	e.after(e.rescanDelay, func(ctx context.Context) {
		if err := e.ProcessPage(ctx, req); err != nil {
			e.logger.Error("rescan failed", "key", req.Key, "error", err)
		}
	})
	return nil
}

// handleChatbotPage marks a chatbot page and arms the send interceptor for
// the vendors that support it.
func (e *Engine) handleChatbotPage(ctx context.Context, req Request, p model.Pipeline) error {
	chatbotType := p.ChatbotType()
	mode, err := e.store.MonitoringMode(ctx)
	if err != nil {
		e.logger.Warn("failed to read monitoring mode", "error", err)
		mode = model.DefaultMonitoringMode
	}
	e.logger.Debug("chatbot page detected", "pipeline", p, "mode", mode)

	if mode != model.MonitoringNone && interceptable(chatbotType) {
		if err := e.host.ArmInterceptor(ctx, req.TabID, chatbotType, mode); err != nil {
			e.logger.Warn("failed to arm interceptor", "tab", req.TabID, "chatbot", chatbotType, "error", err)
		}
	}

	_, err = e.store.Update(ctx, req.Key, func(rec *model.PageRecord) {
		rec.Status = model.StatusComplete
		rec.Count = 1
		rec.Timestamp = e.now()
		rec.Verdict = model.VerdictChatbot
		rec.Reasoning = cases.Title(language.English).String(chatbotType) + " chatbot page"
		rec.Pipeline = p
		rec.MonitoringMode = mode
		rec.KeySource = req.keySource()
		rec.Meta = req.Preview.Clone()
	})
	if err != nil {
		return fmt.Errorf("failed to store chatbot record: %w", err)
	}

	e.publish(notify.Message{
		Action:         notify.ActionChatbotIdle,
		TabID:          req.TabID,
		ChatbotType:    chatbotType,
		MonitoringMode: mode,
	})
	return nil
}

// interceptable reports whether the interceptor supports the chatbot vendor.
func interceptable(chatbotType string) bool {
	return chatbotType == model.ChatbotGoogle || chatbotType == model.ChatbotChatGPT
}
