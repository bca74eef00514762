package app

import (
	"context"
	"log/slog"
	"time"

	"FeedScreener/internal/config"
	"FeedScreener/internal/domain"
	"FeedScreener/internal/errlog"
	"FeedScreener/internal/filter"
	"FeedScreener/internal/infrastructure/discovery"
	"FeedScreener/internal/infrastructure/llm"
	"FeedScreener/internal/infrastructure/storage"
	"FeedScreener/internal/logging"
	"FeedScreener/internal/ports"
	"FeedScreener/internal/scoring"
)

// Application owns one scoring session: the cache, endpoint pool,
// dispatcher, and filter state machine, torn down together.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	source  ports.ItemSource
	store   ports.ScoreStore
	cache   *scoring.Cache
	machine *filter.Machine
	trigger *filter.Trigger
	errors  *errlog.Log
}

// New wires configuration into a runnable session.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := discovery.NewRegistry()
	registry.Register(discovery.NewHTMLScanner(nil))
	source := discovery.NewSource(registry, cfg.Feeds, baseLogger.With("component", "discovery"))

	var store ports.ScoreStore
	if cfg.Storage.Path != "" {
		opened, err := storage.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			baseLogger.Warn("session store unavailable, continuing without persistence", "error", err)
		} else {
			store = opened
		}
	}

	endpoints := make([]domain.Endpoint, 0, len(cfg.Endpoints))
	for _, e := range cfg.Endpoints {
		endpoints = append(endpoints, domain.Endpoint{
			Name:   e.Name,
			URL:    e.URL,
			Model:  e.Model,
			APIKey: e.APIKey,
		})
	}

	cache := scoring.NewCache()
	diag := errlog.New()
	dispatcher := scoring.NewDispatcher(scoring.DispatcherDeps{
		Pool:            scoring.NewPool(endpoints, cfg.Scoring.Cooldown()),
		Cache:           cache,
		Transport:       llm.NewClient(nil),
		Store:           store,
		ErrorLog:        diag,
		Logger:          baseLogger.With("component", "dispatcher"),
		ThrottlePenalty: cfg.Scoring.ThrottlePenalty(),
	})

	machine := filter.NewMachine(filter.MachineDeps{
		Scorer:        dispatcher,
		Cache:         cache,
		Logger:        baseLogger.With("component", "filter"),
		ErrorCooldown: cfg.Scoring.ErrorCooldown(),
		Strictness:    cfg.Scoring.Strictness,
		Context:       cfg.Scoring.Preference,
		Enabled:       true,
	})

	a := &Application{
		cfg:     cfg,
		logger:  baseLogger.With("component", "app"),
		source:  source,
		store:   store,
		cache:   cache,
		machine: machine,
		errors:  diag,
	}
	a.trigger = filter.NewTrigger(cfg.Scoring.Debounce(), func() {
		if err := a.machine.Process(context.Background()); err != nil {
			a.logger.Warn("processing attempt failed", "error", err)
		}
	})
	return a
}

// Machine exposes the filter state machine for the policy interface.
func (a *Application) Machine() *filter.Machine {
	return a.machine
}

// ErrorEntries returns the in-memory diagnostic ring, most recent
// last.
func (a *Application) ErrorEntries() []domain.ErrorEntry {
	return a.errors.Entries()
}

// Run polls discovery on the configured interval, feeds changes
// through the debounced trigger, and blocks until the context is
// cancelled.
func (a *Application) Run(ctx context.Context) error {
	a.warmCache(ctx)

	interval := a.cfg.Discovery.PollInterval()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer a.shutdown()

	a.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.poll(ctx)
		}
	}
}

// RunOnce performs a single fetch-and-score pass and returns the
// resulting item views. Used by the one-shot CLI mode.
func (a *Application) RunOnce(ctx context.Context) ([]filter.ItemView, error) {
	a.warmCache(ctx)
	defer a.shutdown()

	items, err := a.source.FetchItems(ctx)
	if err != nil {
		return nil, err
	}

	a.machine.ItemsChanged(items)
	if err := a.machine.Process(ctx); err != nil {
		return a.machine.Snapshot(), err
	}
	return a.machine.Snapshot(), nil
}

func (a *Application) poll(ctx context.Context) {
	items, err := a.source.FetchItems(ctx)
	if err != nil {
		a.logger.Warn("discovery failed", "error", err)
		return
	}
	if a.machine.ItemsChanged(items) {
		a.trigger.Signal()
	}
}

func (a *Application) warmCache(ctx context.Context) {
	if a.store == nil {
		return
	}
	hash := scoring.ContextHash(a.machine.Context())
	scores, err := a.store.LoadScores(ctx, hash)
	if err != nil {
		a.logger.Warn("cache warm-up failed", "error", err)
		return
	}
	if len(scores) > 0 {
		a.cache.Warm(a.machine.Context(), scores)
		a.logger.Info("cache warmed from store", "entries", len(scores))
	}
}

func (a *Application) shutdown() {
	if a.trigger != nil {
		a.trigger.Stop()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close session store", "error", err)
		}
	}
}
