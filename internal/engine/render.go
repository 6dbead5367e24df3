package engine

import (
	"context"
	"fmt"

	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/pagekey"
	"github.com/nao1215/swiftguard/internal/pipeline"
)

// CheckAndInjectBanner replays a cached verdict for the page at rawURL in
// tab tabID without calling the model. Only a complete record is replayed,
// and only the verdicts that surface on first analysis surface again.
func (e *Engine) CheckAndInjectBanner(ctx context.Context, tabID int, rawURL string) error {
	if !pagekey.IsHTTP(rawURL) {
		return nil
	}
	tab, err := e.host.Tab(ctx, tabID)
	if err != nil {
		return fmt.Errorf("failed to look up tab %d: %w", tabID, err)
	}
	key, _ := pagekey.Derive(rawURL, tab.Preview)
	rec, err := e.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read record %s: %w", key, err)
	}
	e.replay(ctx, tabID, key, rec)
	return nil
}

// replay performs the surfacing side effects of a complete record.
func (e *Engine) replay(ctx context.Context, tabID int, key string, rec *model.PageRecord) {
	if !rec.IsComplete() {
		return
	}

	switch {
	case rec.Pipeline.IsChatbot():
		chatbotType := rec.Pipeline.ChatbotType()
		if rec.MonitoringMode == model.MonitoringNone || !interceptable(chatbotType) {
			return
		}
		e.logger.Debug("re-arming interceptor on revisit", "chatbot", chatbotType)
		if err := e.host.ArmInterceptor(ctx, tabID, chatbotType, rec.MonitoringMode); err != nil {
			e.logger.Warn("failed to re-arm interceptor", "tab", tabID, "error", err)
		}

	case rec.Pipeline == model.PipelineNews && rec.News != nil && rec.News.Verdict.Surfaces():
		news := rec.News
		e.publish(notify.Message{
			Action:     notify.ActionNewsFactCheck,
			TabID:      tabID,
			Pipeline:   model.PipelineNews,
			Phrase:     news.PhraseUsed,
			Reviews:    news.Reviews,
			Verdict:    string(news.Verdict),
			Reasoning:  news.Reasoning,
			ClaimTitle: news.ClaimTitle,
		})
		e.openPopup(ctx, tabID)

	case (rec.Pipeline == model.PipelineScam || rec.Pipeline == "") && pipeline.ShouldSurface(model.PipelineScam, rec.Verdict):
		e.logger.Info("injecting banner for known scam page", "key", key)
		if err := e.host.InjectScamBanner(ctx, tabID, rec.Reasoning); err != nil {
			e.logger.Warn("failed to inject scam banner", "tab", tabID, "error", err)
			return
		}
		e.publishVerdict(tabID, rec)
		e.openPopup(ctx, tabID)

	case rec.Pipeline == model.PipelineEcommerce && pipeline.ShouldSurface(model.PipelineEcommerce, rec.Verdict):
		e.publishVerdict(tabID, rec)
		e.openPopup(ctx, tabID)
	}
}

func (e *Engine) publishVerdict(tabID int, rec *model.PageRecord) {
	e.publish(notify.Message{
		Action:    notify.ActionScamVerdict,
		TabID:     tabID,
		Pipeline:  rec.Pipeline,
		Verdict:   string(rec.Verdict),
		Reasoning: rec.Reasoning,
	})
}

func (e *Engine) openPopup(ctx context.Context, tabID int) {
	if err := e.host.OpenPopup(ctx, tabID); err != nil {
		e.logger.Warn("failed to open popup", "tab", tabID, "error", err)
	}
}
