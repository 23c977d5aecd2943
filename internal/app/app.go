package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/newthinker/folio/internal/advisor"
	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/collector"
	"github.com/newthinker/folio/internal/collector/yahoo"
	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/llm/factory"
	"github.com/newthinker/folio/internal/metrics"
	"github.com/newthinker/folio/internal/momentum"
	"github.com/newthinker/folio/internal/scheduler"
	"github.com/newthinker/folio/internal/strategy"
	"github.com/newthinker/folio/internal/suggest"
	"go.uber.org/zap"
)

// App wires configuration into a ready suggestion service and the
// background jobs that support it.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Registry
	cache     cache.Cache
	providers *collector.Registry
	catalog   *strategy.Catalog
	service   *suggest.Service
	scheduler *scheduler.Scheduler
	llm       llm.Provider

	mu      sync.Mutex
	running bool
}

type options struct {
	providers []collector.Provider
	llm       llm.Provider
	catalog   *strategy.Catalog
}

// Option customizes how the App is assembled.
type Option func(*options)

// WithProvider registers an extra market data provider. A provider named
// like a built-in one replaces it.
func WithProvider(p collector.Provider) Option {
	return func(o *options) { o.providers = append(o.providers, p) }
}

// WithLLM uses p for commentary instead of the configured provider.
func WithLLM(p llm.Provider) Option {
	return func(o *options) { o.llm = p }
}

// WithCatalog replaces the built-in strategy catalog.
func WithCatalog(c *strategy.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// New creates a new App instance from a validated configuration.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		providers: collector.NewRegistry(),
		catalog:   o.catalog,
	}
	if a.catalog == nil {
		a.catalog = strategy.DefaultCatalog()
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	c, err := cache.New(cfg.Cache.Backend())
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	a.cache = c

	a.providers.Register(yahoo.New(cfg.MarketData.Timeout))
	for _, p := range o.providers {
		a.providers.Register(p)
	}
	base, err := a.providers.MustGet(cfg.MarketData.Provider)
	if err != nil {
		return nil, err
	}

	var observer collector.CacheObserver
	if a.metrics != nil {
		observer = a.metrics
	}
	provider := collector.NewCached(
		collector.NewRetrying(base, cfg.MarketData.RetryBackoff, logger),
		a.cache, cfg.Cache.TTL, logger, observer,
	)

	policy, err := strategy.ParsePolicy(cfg.Portfolio.CombinePolicy)
	if err != nil {
		return nil, err
	}
	selector := strategy.NewSelector(a.catalog, provider,
		strategy.WithPolicy(policy),
		strategy.WithMaxHoldings(cfg.Portfolio.MaxHoldings),
		strategy.WithConcurrency(cfg.MarketData.Concurrency),
		strategy.WithLogger(logger),
	)

	scorer, err := momentum.New(cfg.Portfolio.Scorer, cfg.Portfolio.Window, cfg.Portfolio.MinPeriods)
	if err != nil {
		return nil, err
	}

	a.llm = o.llm
	if a.llm == nil {
		if a.llm, err = factory.New(cfg.LLM); err != nil {
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
	}

	svcOpts := []suggest.Option{
		suggest.WithLookbackDays(cfg.MarketData.LookbackDays),
		suggest.WithTrendDays(cfg.Portfolio.TrendDays),
		suggest.WithConcurrency(cfg.MarketData.Concurrency),
		suggest.WithLogger(logger),
	}
	if a.metrics != nil {
		svcOpts = append(svcOpts, suggest.WithRecorder(a.metrics))
	}
	if a.llm != nil {
		svcOpts = append(svcOpts, suggest.WithCommentator(advisor.New(a.llm, 0)))
	}
	a.service = suggest.New(selector, provider, scorer, svcOpts...)

	a.scheduler = scheduler.New(logger, 0)
	if cfg.Cache.Type != "none" && cfg.Cache.PruneSchedule != "" {
		var pruneObserver scheduler.PruneObserver
		if a.metrics != nil {
			pruneObserver = a.metrics
		}
		job := scheduler.NewPruneJob(a.cache, logger, pruneObserver)
		if err := a.scheduler.AddJob(cfg.Cache.PruneSchedule, job); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Service returns the suggestion service.
func (a *App) Service() *suggest.Service {
	return a.service
}

// Catalog returns the strategy catalog.
func (a *App) Catalog() *strategy.Catalog {
	return a.catalog
}

// Metrics returns the metrics registry, or nil when metrics are disabled.
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Start runs the background jobs until ctx is done or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	a.mu.Unlock()

	a.logger.Info("folio starting",
		zap.String("provider", a.cfg.MarketData.Provider),
		zap.String("cache", a.cfg.Cache.Type),
		zap.String("policy", a.cfg.Portfolio.CombinePolicy),
		zap.Bool("commentary", a.llm != nil),
		zap.Int("jobs", a.scheduler.Len()),
	)
	a.scheduler.Start()

	<-ctx.Done()
	a.Stop()
	return ctx.Err()
}

// Stop stops the background jobs, waiting for running ones to finish.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.running = false
	a.scheduler.Stop()
	a.logger.Info("folio stopped")
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()

	commentary := ""
	if a.llm != nil {
		commentary = a.llm.Name()
	}
	return map[string]any{
		"running":    a.running,
		"providers":  a.providers.Names(),
		"strategies": len(a.catalog.All()),
		"candidates": len(a.catalog.Candidates()),
		"jobs":       a.scheduler.Len(),
		"commentary": commentary,
	}
}
