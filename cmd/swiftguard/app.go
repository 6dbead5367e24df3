package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nats-io/nats.go"

	"github.com/nao1215/swiftguard/internal/cache"
	"github.com/nao1215/swiftguard/internal/config"
	"github.com/nao1215/swiftguard/internal/database"
	"github.com/nao1215/swiftguard/internal/dispatch"
	"github.com/nao1215/swiftguard/internal/engine"
	"github.com/nao1215/swiftguard/internal/eventsink"
	"github.com/nao1215/swiftguard/internal/factcheck"
	"github.com/nao1215/swiftguard/internal/host"
	"github.com/nao1215/swiftguard/internal/interceptor"
	"github.com/nao1215/swiftguard/internal/llm"
	"github.com/nao1215/swiftguard/internal/metrics"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/notify"
	"github.com/nao1215/swiftguard/internal/pipeline"
	"github.com/nao1215/swiftguard/internal/server"
)

// app is the wired classification service behind "swiftguard serve".
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	kv      *database.KV
	store   *cache.Store
	hub     *notify.Hub
	metrics *metrics.Metrics
	manager *llm.Manager
	engine  *engine.Engine
	nc      *nats.Conn
	handler http.Handler

	stopAvailability func()
}

// models builds the model manager and the inference router.
func models(cfg *config.Config, store llm.StateStore, logger *slog.Logger) (*llm.Manager, *llm.Router) {
	local := llm.NewOllama(cfg.OllamaURL, cfg.Model, llm.WithOllamaLogger(logger))
	manager := llm.NewManager(local,
		llm.WithStateStore(store),
		llm.WithGracePeriod(cfg.GracePeriod),
		llm.WithLogger(logger),
	)

	var cloud llm.Runtime
	if cfg.CloudEnabled() {
		cloud = llm.NewOllama(cfg.CloudURL, cfg.CloudModel, llm.WithOllamaLogger(logger))
	}
	return manager, llm.NewRouter(manager, cloud, logger)
}

// factChecker returns the fact-check client, or nil when no proxy is
// configured.
func factChecker(cfg *config.Config) pipeline.Searcher {
	if cfg.FactCheckURL == "" {
		return nil
	}
	return factcheck.NewClient(cfg.FactCheckURL, cfg.FactCheckAPIKey,
		factcheck.WithRate(float64(cfg.FactCheckRate), cfg.FactCheckRate),
	)
}

// newApp opens the store and wires every component. Close releases them.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	kv, store, err := openStore(cfg, logger, true)
	if err != nil {
		return nil, err
	}
	a.kv, a.store = kv, store

	err = store.SeedSettings(ctx, cache.Seed{
		MonitoringMode: cfg.Monitoring(),
		InferenceMode:  cfg.Inference(),
		Enrollment:     model.Enrollment{FamilyID: cfg.FamilyID, FamilyUserID: cfg.FamilyUserID},
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}
	dropped, err := store.DropProcessing(ctx)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to clear interrupted records: %w", err)
	}
	if dropped > 0 {
		logger.Warn("cleared records left processing by a previous run", "count", dropped)
	}

	a.hub = notify.NewHub(
		notify.WithLogger(logger),
		notify.WithDropHook(func(notify.Message) { a.metrics.NotificationDropped() }),
	)

	identity := eventsink.NewSessionIdentity(cfg.FamilyUserID)
	var sink eventsink.Sink
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(config.AppName))
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
		}
		a.nc = nc
		sink = eventsink.NewNATS(nc, cfg.NATSSubjectPrefix, identity)
	}

	manager, router := models(cfg, store, logger)
	a.manager = manager
	a.stopAvailability = manager.OnAvailabilityChange(func(av model.Availability, progress int) {
		a.hub.Publish(notify.Message{Action: notify.ActionLLMAvailabilityUpdated, Availability: av.String()})
		if av == model.AvailabilityDownloading {
			a.hub.Publish(notify.Message{Action: notify.ActionLLMDownloadProgress, Progress: progress})
		}
	})

	var bridge *host.Bridge
	ic := interceptor.New(interceptor.Deps{
		Store:    store,
		Sessions: manager,
		Notifier: a.hub,
		Popup: interceptor.PopupFunc(func(ctx context.Context, tabID int) error {
			return bridge.OpenPopup(ctx, tabID)
		}),
		Events: sink,
	}, interceptor.WithLogger(logger), interceptor.WithMetrics(a.metrics))
	bridge = host.NewBridge(a.hub, host.WithArmer(ic), host.WithLogger(logger))

	runner := pipeline.New(pipeline.Deps{
		Store:     store,
		Sessions:  manager,
		Generator: router,
		Notifier:  a.hub,
		Surface:   bridge,
		FactCheck: factChecker(cfg),
		Events:    sink,
	}, pipeline.WithLogger(logger), pipeline.WithMetrics(a.metrics))

	a.engine = engine.New(store, runner, bridge,
		engine.WithLogger(logger),
		engine.WithNotifier(a.hub),
		engine.WithMetrics(a.metrics),
		engine.WithDebounce(cfg.Debounce),
		engine.WithSnapshotDelay(cfg.SnapshotDelay),
		engine.WithRescanDelay(cfg.RescanDelay),
	)

	d := dispatch.New(dispatch.Deps{
		Engine:      a.engine,
		Interceptor: ic,
		Tabs:        bridge,
		Store:       store,
		Sessions:    manager,
		Translator:  llm.NewTranslator(manager),
		Identity:    identity,
	}, logger)

	a.handler = server.New(d, a.hub,
		server.WithLogger(logger),
		server.WithMetrics(a.metrics),
		server.WithAPIKey(cfg.APIKey),
	).Handler()
	return a, nil
}

// run checks model availability once and serves until ctx is cancelled.
func (a *app) run(ctx context.Context) error {
	go func() {
		av := a.manager.CheckAvailability(ctx)
		a.logger.Info("model availability", "model", a.cfg.Model, "availability", av.String())
	}()
	return server.Serve(ctx, a.cfg.Listen, a.handler, a.logger)
}

// Close stops timers, drains NATS and closes the database.
func (a *app) Close() error {
	var errs []error
	if a.stopAvailability != nil {
		a.stopAvailability()
	}
	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	if a.nc != nil {
		errs = append(errs, a.nc.Drain())
	}
	if a.kv != nil {
		errs = append(errs, a.kv.Close())
	}
	return errors.Join(errs...)
}
