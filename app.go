package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"GoModelRouter/pkg/adaptive"
	"GoModelRouter/pkg/config"
	"GoModelRouter/pkg/discovery"
	"GoModelRouter/pkg/generation"
	"GoModelRouter/pkg/health"
	"GoModelRouter/pkg/logger"
	"GoModelRouter/pkg/orchestrator"
	"GoModelRouter/pkg/selector"
	"GoModelRouter/pkg/store"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	store     *store.Store
	closer    io.Closer
	refresher *discovery.Refresher
	limiter   *adaptive.Limiter
	window    *health.OutcomeWindow
	orch      *orchestrator.Orchestrator
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	log := logger.NewLogger(cfg.LogLevel).Desugar()

	backend, closer, err := store.OpenBackend(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	st := store.New(ctx, backend, cfg.Selection, log)

	catalog := discovery.NewHubCatalog(cfg.Discovery, nil, log)
	refresher := discovery.NewRefresher(st, catalog, discovery.Throttle(cfg.Discovery.MinRefreshInterval), log)

	a := &app{
		cfg:       cfg,
		log:       log,
		store:     st,
		closer:    closer,
		refresher: refresher,
	}

	var throttle generation.Throttle
	var opts []orchestrator.Option
	if cfg.Adaptive.Enabled {
		a.limiter = adaptive.NewLimiter(cfg.Adaptive.BaseLimit, cfg.Adaptive.Burst)
		a.window = health.NewOutcomeWindow(cfg.Adaptive.Window, 0)
		throttle = a.limiter
		opts = append(opts, orchestrator.WithObserver(a.window))
	}

	client := generation.NewRouterClient(cfg.Generation, nil, throttle, log)
	sel := selector.New(st, nil, log)
	a.orch = orchestrator.New(cfg.Orchestrator, refresher, sel, st, client, log, opts...)

	log.Info("router initialised",
		zap.String("store", cfg.Store.Driver),
		zap.Int("candidates", len(st.Snapshot().Candidates)),
		zap.Bool("adaptive", cfg.Adaptive.Enabled),
		zap.Bool("api_key", cfg.Generation.APIKey != ""))
	return a, nil
}

// healthSource picks where the adaptive monitor reads health from.
func (a *app) healthSource() (health.Source, error) {
	switch a.cfg.Adaptive.Source {
	case "", "window":
		return a.window, nil
	case "prometheus":
		return health.NewPrometheusSource(a.cfg.Adaptive.PrometheusURL, a.cfg.Adaptive.Window, a.log)
	default:
		return nil, fmt.Errorf("unknown adaptive source %q", a.cfg.Adaptive.Source)
	}
}

func (a *app) Close() {
	if err := a.closer.Close(); err != nil {
		a.log.Warn("failed to close store backend", zap.Error(err))
	}
	_ = a.log.Sync()
}
