package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/swiftguard/internal/engine"
	"github.com/nao1215/swiftguard/internal/interceptor"
	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/model"
)

// Engine is the page orchestrator. engine.Engine implements it.
type Engine interface {
	ClassifyCurrentPage(ctx context.Context) error
	CurrentResult(ctx context.Context) (string, *model.PageRecord, error)
	ReanalyzeCurrentPage(ctx context.Context) error
	MonitoringModeUpdated(ctx context.Context, mode model.MonitoringMode) error
	HandleTabActivated(ctx context.Context, tabID int) error
	HandleNavigation(ctx context.Context, tabID int) error
	HandleTabUpdate(ctx context.Context, tabID int) error
}

// Interceptor screens chatbot messages. interceptor.Interceptor implements it.
type Interceptor interface {
	AnalyzePrompt(ctx context.Context, req interceptor.Request) model.Decision
	AnalyzeFamilyCenter(ctx context.Context, req interceptor.Request) model.Decision
	Submit(ctx context.Context, tabID int, text string) (interceptor.Result, error)
	InputChanged(tabID int, text string) error
}

// Tabs receives tab state pushed by the extension shell. host.Bridge
// implements it.
type Tabs interface {
	UpdateTab(tab engine.Tab)
	Activate(tabID int) error
	RemoveTab(tabID int)
	PushSnapshot(tabID int, png []byte)
}

// Store holds settings and the leak-prevention state. cache.Store
// implements it.
type Store interface {
	PromptGuardState(ctx context.Context) (*model.PromptGuardState, error)
	ClearPromptGuardState(ctx context.Context) error
	MonitoringMode(ctx context.Context) (model.MonitoringMode, error)
	SetMonitoringMode(ctx context.Context, mode model.MonitoringMode) error
	InferenceMode(ctx context.Context) (model.InferenceMode, error)
	SetInferenceMode(ctx context.Context, mode model.InferenceMode) error
	Enrollment(ctx context.Context) (model.Enrollment, error)
	SetEnrollment(ctx context.Context, e model.Enrollment) error
	Availability(ctx context.Context) (model.Availability, int, error)
}

// Translator translates popup texts. llm.Translator implements it.
type Translator interface {
	Translate(ctx context.Context, source, target, text string) (string, error)
}

// Identity is the signed-in family member. eventsink.SessionIdentity
// implements it.
type Identity interface {
	SignIn(uid string)
	SignOut()
}

// Deps are the collaborators of a Dispatcher. Tabs, Translator and
// Identity may be nil; their actions then fail.
type Deps struct {
	Engine      Engine
	Interceptor Interceptor
	Tabs        Tabs
	Store       Store
	Sessions    llm.SessionCreator
	Translator  Translator
	Identity    Identity
}

// translateSource is the language every verdict text is written in.
const translateSource = "en"

var downloadOptions = llm.SessionOptions{Temperature: 0, TopK: 1}

// Dispatcher routes actions to their handlers.
type Dispatcher struct {
	deps   Deps
	logger *slog.Logger
}

// New creates a Dispatcher. A nil logger means slog.Default.
func New(deps Deps, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{deps: deps, logger: logger}
}

// Dispatch runs req and returns the value to send back. Only unknown
// actions and malformed shell requests return an error; other failures are
// reported inside the response the way each action defines.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, error) {
	d.logger.Debug("dispatch", "action", req.Action, "tab", req.TabID)

	switch req.Action {
	case ActionClassifyCurrentPage:
		return d.classifyCurrentPage(ctx), nil
	case ActionGetCurrentResult:
		return d.getCurrentResult(ctx), nil
	case ActionAnalyzePrompt:
		return d.deps.Interceptor.AnalyzePrompt(ctx, interceptorRequest(req)), nil
	case ActionAnalyzeFamilyCenter:
		return d.deps.Interceptor.AnalyzeFamilyCenter(ctx, interceptorRequest(req)), nil
	case ActionMonitoringModeUpdated:
		return d.monitoringModeUpdated(ctx, req), nil
	case ActionReanalyzeCurrentPage:
		return d.reanalyzeCurrentPage(ctx), nil
	case ActionStartLLMDownload:
		return d.startLLMDownload(ctx), nil
	case ActionTranslate:
		return d.translate(ctx, req), nil
	case ActionGetPromptGuardState:
		return d.getPromptGuardState(ctx), nil
	case ActionClearPromptGuardState:
		return d.clearPromptGuardState(ctx), nil
	case ActionGetSettings:
		return d.getSettings(ctx)
	case ActionSetSettings:
		return d.setSettings(ctx, req)
	case ActionTabUpdated:
		return d.tabUpdated(ctx, req)
	case ActionTabActivated:
		return d.tabActivated(ctx, req)
	case ActionTabRemoved:
		return d.tabRemoved(req)
	case ActionNavigationCommitted:
		return d.navigationCommitted(ctx, req)
	case ActionSnapshot:
		return d.snapshot(req)
	case ActionInterceptorSubmit:
		return d.deps.Interceptor.Submit(ctx, req.TabID, req.Message)
	case ActionInterceptorInput:
		return d.interceptorInput(req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

func interceptorRequest(req Request) interceptor.Request {
	return interceptor.Request{TabID: req.TabID, Message: req.Message, Platform: req.Platform}
}

func failed(err error) OK {
	return OK{OK: false, Error: err.Error()}
}

// classifyCurrentPage always acknowledges; a missing tab is not an error.
func (d *Dispatcher) classifyCurrentPage(ctx context.Context) OK {
	err := d.deps.Engine.ClassifyCurrentPage(ctx)
	if err != nil && !errors.Is(err, engine.ErrNoActiveTab) {
		d.logger.Warn("classify-current-page failed", "error", err)
	}
	return OK{OK: true}
}

// getCurrentResult returns nil when there is no page to report on.
func (d *Dispatcher) getCurrentResult(ctx context.Context) *CurrentResult {
	key, rec, err := d.deps.Engine.CurrentResult(ctx)
	if err != nil {
		if !errors.Is(err, engine.ErrNoActiveTab) {
			d.logger.Warn("get-current-result failed", "error", err)
		}
		return nil
	}
	return &CurrentResult{Key: key, Entry: rec}
}

// monitoringModeUpdated stores the new mode and applies it to the
// foreground chatbot page.
func (d *Dispatcher) monitoringModeUpdated(ctx context.Context, req Request) OK {
	mode, err := model.ParseMonitoringMode(string(req.Mode))
	if err != nil {
		return failed(err)
	}
	if err := d.deps.Store.SetMonitoringMode(ctx, mode); err != nil {
		return failed(err)
	}
	if err := d.deps.Engine.MonitoringModeUpdated(ctx, mode); err != nil {
		d.logger.Warn("monitoring-mode-updated failed", "error", err)
		return failed(err)
	}
	return OK{OK: true}
}

func (d *Dispatcher) reanalyzeCurrentPage(ctx context.Context) OK {
	if err := d.deps.Engine.ReanalyzeCurrentPage(ctx); err != nil {
		d.logger.Warn("reanalyze-current-page failed", "error", err)
		return failed(err)
	}
	return OK{OK: true}
}

// startLLMDownload creates a throwaway session, which starts the model
// download when one is needed.
func (d *Dispatcher) startLLMDownload(ctx context.Context) OK {
	if _, err := d.deps.Sessions.CreateSession(ctx, downloadOptions); err != nil {
		d.logger.Error("model download trigger failed", "error", err)
		return failed(err)
	}
	return OK{OK: true}
}

func (d *Dispatcher) translate(ctx context.Context, req Request) Translation {
	if d.deps.Translator == nil {
		return Translation{Error: llm.ErrTranslatorUnavailable.Error()}
	}
	text, err := d.deps.Translator.Translate(ctx, translateSource, req.TargetLang, req.Text)
	if err != nil {
		d.logger.Error("translation failed", "target", req.TargetLang, "error", err)
		return Translation{Error: err.Error()}
	}
	reasoning, err := d.deps.Translator.Translate(ctx, translateSource, req.TargetLang, req.Reasoning)
	if err != nil {
		d.logger.Error("translation failed", "target", req.TargetLang, "error", err)
		return Translation{Error: err.Error()}
	}
	return Translation{TranslatedText: text, TranslatedReasoning: reasoning}
}

func (d *Dispatcher) getPromptGuardState(ctx context.Context) *model.PromptGuardState {
	st, err := d.deps.Store.PromptGuardState(ctx)
	if err != nil {
		d.logger.Warn("get-promptguard-state failed", "error", err)
		return nil
	}
	return st
}

func (d *Dispatcher) clearPromptGuardState(ctx context.Context) OK {
	if err := d.deps.Store.ClearPromptGuardState(ctx); err != nil {
		d.logger.Warn("clear-promptguard-state failed", "error", err)
		return OK{OK: false}
	}
	return OK{OK: true}
}
