package engine

import (
	"context"
	"fmt"

	"github.com/nao1215/swiftguard/internal/pagekey"
	"github.com/nao1215/swiftguard/internal/rules"
)

// HandleTabActivated runs the full update cycle for a tab brought to the
// foreground.
func (e *Engine) HandleTabActivated(ctx context.Context, tabID int) error {
	return e.HandleTabUpdate(ctx, tabID)
}

// HandleNavigation reacts to a committed top-level navigation. The active
// tab runs the full update cycle; background tabs only replay cached
// verdicts.
func (e *Engine) HandleNavigation(ctx context.Context, tabID int) error {
	tab, err := e.host.Tab(ctx, tabID)
	if err != nil {
		return fmt.Errorf("failed to look up tab %d: %w", tabID, err)
	}
	if !pagekey.IsHTTP(tab.URL) {
		return nil
	}
	if tab.Active {
		return e.HandleTabUpdate(ctx, tabID)
	}
	return e.CheckAndInjectBanner(ctx, tabID, tab.URL)
}

// HandleTabUpdate is the update cycle for the tab's current page.
//
// Any pending debounced run for the tab is cancelled. Chatbot pages are
// handled at once. Otherwise a snapshot is scheduled, a cached verdict is
// replayed, and a page with no record is classified once the debounce
// window passes without another update.
func (e *Engine) HandleTabUpdate(ctx context.Context, tabID int) error {
	e.cancelDebounce(tabID)

	tab, err := e.host.Tab(ctx, tabID)
	if err != nil {
		return fmt.Errorf("failed to look up tab %d: %w", tabID, err)
	}
	if !pagekey.IsHTTP(tab.URL) {
		return nil
	}

	req := NewRequest(tab)
	if p, ok := rules.Classify(tab.URL, tab.Preview); ok && p.IsChatbot() {
		return e.handleChatbotPage(ctx, req, p)
	}

	e.after(e.snapshotDelay, func(ctx context.Context) {
		e.captureSnapshot(ctx, tabID, req.Key)
	})

	rec, err := e.store.Get(ctx, req.Key)
	if err != nil {
		return fmt.Errorf("failed to read record %s: %w", req.Key, err)
	}
	switch {
	case rec.IsComplete():
		return e.CheckAndInjectBanner(ctx, tabID, tab.URL)
	case rec.IsProcessing():
		e.logger.Debug("page already processing", "key", req.Key)
		return nil
	}

	e.schedule(e.debounce, tabID, func(ctx context.Context) {
		if err := e.ProcessPage(ctx, req); err != nil {
			e.logger.Error("page processing failed", "key", req.Key, "error", err)
		}
	})
	return nil
}

func (e *Engine) cancelDebounce(tabID int) {
	e.mu.Lock()
	t := e.debounceTimers[tabID]
	delete(e.debounceTimers, tabID)
	e.mu.Unlock()
	e.stop(t)
}
