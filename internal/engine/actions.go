package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/pagekey"
)

// activeRequest returns the request for the foreground http(s) tab.
func (e *Engine) activeRequest(ctx context.Context) (Request, error) {
	tab, err := e.host.ActiveTab(ctx)
	if err != nil {
		return Request{}, err
	}
	if !pagekey.IsHTTP(tab.URL) {
		return Request{}, ErrNoActiveTab
	}
	return NewRequest(tab), nil
}

// ClassifyCurrentPage runs ProcessPage for the foreground tab.
func (e *Engine) ClassifyCurrentPage(ctx context.Context) error {
	req, err := e.activeRequest(ctx)
	if err != nil {
		return err
	}
	return e.ProcessPage(ctx, req)
}

// CurrentResult returns the PageKey of the foreground tab and its record,
// which is nil when the page was never classified.
func (e *Engine) CurrentResult(ctx context.Context) (string, *model.PageRecord, error) {
	req, err := e.activeRequest(ctx)
	if err != nil {
		return "", nil, err
	}
	rec, err := e.store.Get(ctx, req.Key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read record %s: %w", req.Key, err)
	}
	return req.Key, rec, nil
}

// ReanalyzeCurrentPage discards the foreground tab's record and snapshot,
// captures a fresh snapshot and classifies the page again.
func (e *Engine) ReanalyzeCurrentPage(ctx context.Context) error {
	req, err := e.activeRequest(ctx)
	if err != nil {
		return err
	}
	if err := e.store.Delete(ctx, req.Key); err != nil {
		return fmt.Errorf("failed to clear record %s: %w", req.Key, err)
	}
	e.discardSnapshot(ctx, req.TabID, req.Key)
	e.captureSnapshot(ctx, req.TabID, req.Key)

	e.publish(notify.Message{Action: notify.ActionAnalyzing, TabID: req.TabID, Pipeline: model.PipelinePrepass})
	return e.ProcessPage(ctx, req)
}

// MonitoringModeUpdated applies a new monitoring mode to the foreground
// chatbot page. With MonitoringNone the tab is reloaded to drop the
// interceptor; otherwise the interceptor is re-armed.
func (e *Engine) MonitoringModeUpdated(ctx context.Context, mode model.MonitoringMode) error {
	req, err := e.activeRequest(ctx)
	if errors.Is(err, ErrNoActiveTab) {
		return nil
	}
	if err != nil {
		return err
	}

	rec, err := e.store.Get(ctx, req.Key)
	if err != nil {
		return fmt.Errorf("failed to read record %s: %w", req.Key, err)
	}
	if rec == nil || !rec.Pipeline.IsChatbot() {
		return nil
	}

	if _, err := e.store.Update(ctx, req.Key, func(r *model.PageRecord) {
		r.MonitoringMode = mode
	}); err != nil {
		return fmt.Errorf("failed to update monitoring mode: %w", err)
	}

	chatbotType := rec.Pipeline.ChatbotType()
	if mode == model.MonitoringNone {
		return e.host.ReloadTab(ctx, req.TabID)
	}
	if err := e.host.ArmInterceptor(ctx, req.TabID, chatbotType, mode); err != nil {
		e.logger.Warn("failed to arm interceptor", "tab", req.TabID, "error", err)
	}
	e.publish(notify.Message{
		Action:         notify.ActionChatbotIdle,
		TabID:          req.TabID,
		ChatbotType:    chatbotType,
		MonitoringMode: mode,
	})
	return nil
}
