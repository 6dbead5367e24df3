package engine

import (
	"context"

	"github.com/nao1215/swiftguard/internal/metadata"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/pipeline"
)

// Tab is the host's view of one browser tab.
type Tab struct {
	ID      int              `json:"id"`
	URL     string           `json:"url"`
	Active  bool             `json:"active"`
	Preview metadata.Preview `json:"preview"`
}

// Host is the browser the engine drives. It reports tab state and executes
// the side effects of a verdict.
type Host interface {
	pipeline.Surface

	// Tab returns the tab with id, or ErrTabNotFound.
	Tab(ctx context.Context, id int) (Tab, error)

	// ActiveTab returns the foreground tab, or ErrNoActiveTab.
	ActiveTab(ctx context.Context) (Tab, error)

	// CaptureSnapshot returns a PNG of the tab's visible viewport.
	CaptureSnapshot(ctx context.Context, tabID int) ([]byte, error)

	// DiscardSnapshot forgets any capture the host holds for the tab, so the
	// next CaptureSnapshot takes a new one.
	DiscardSnapshot(ctx context.Context, tabID int) error

	// ArmInterceptor installs the chatbot send interceptor in the tab.
	ArmInterceptor(ctx context.Context, tabID int, chatbotType string, mode model.MonitoringMode) error

	// ReloadTab reloads the tab, removing any installed interceptor.
	ReloadTab(ctx context.Context, tabID int) error
}
