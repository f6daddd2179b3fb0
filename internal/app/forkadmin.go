// Package app wires the forkadmin domain to its adapters.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	gaadapter "github.com/felixgeelhaar/forkadmin/internal/adapters/analytics"
	"github.com/felixgeelhaar/forkadmin/internal/adapters/cache"
	"github.com/felixgeelhaar/forkadmin/internal/adapters/logging"
	"github.com/felixgeelhaar/forkadmin/internal/adapters/modules"
	settingsadapter "github.com/felixgeelhaar/forkadmin/internal/adapters/settings"
	"github.com/felixgeelhaar/forkadmin/internal/config"
	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/felixgeelhaar/forkadmin/internal/domain/cronjob"
	"github.com/felixgeelhaar/forkadmin/internal/domain/invocation"
	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
	"github.com/felixgeelhaar/forkadmin/internal/domain/moduleconfig"
	"github.com/felixgeelhaar/forkadmin/internal/modules/analytics"
	"github.com/felixgeelhaar/forkadmin/internal/modules/core"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// Options overrides the collaborators New would build from Config.
type Options struct {
	Config    *config.Config
	Logger    ports.Logger
	Settings  ports.SettingsStore
	Modules   ports.ModuleLister
	Analytics ports.AnalyticsService
	Cache     ports.ReportCache
	Audit     audit.Logger
	Now       func() time.Time
}

// App is the forkadmin application.
type App struct {
	cfg        *config.Config
	logger     ports.Logger
	store      ports.SettingsStore
	registry   *module.Registry
	resolver   *module.Resolver
	loader     *moduleconfig.Loader
	dispatcher *cronjob.Dispatcher
	languages  invocation.Languages
	audit      audit.Logger
	closers    []func() error
}

// New builds the application.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{cfg: cfg, logger: opts.Logger}
	if a.logger == nil {
		a.logger = logging.NewNopLogger()
	}

	var err error
	if a.store = opts.Settings; a.store == nil {
		if a.store, err = a.openSettings(ctx); err != nil {
			return nil, err
		}
	}
	if a.audit = opts.Audit; a.audit == nil {
		if a.audit, err = a.openAudit(); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	provider := opts.Analytics
	if provider == nil {
		provider = gaadapter.New(gaadapter.Options{MaxPages: cfg.Analytics.MaxPages, Logger: a.logger})
	}
	reportCache := opts.Cache
	if reportCache == nil {
		reportCache = cache.NewFileCache(cfg.Cache.Dir)
	}
	lister := opts.Modules
	if lister == nil {
		lister = modules.NewDirLister(cfg.ModulesDir)
	}

	a.registry = module.NewRegistry()
	if err := core.Register(a.registry, opts.Now); err != nil {
		return nil, err
	}
	if err := analytics.Register(a.registry, analytics.Deps{
		Service:     provider,
		Cache:       reportCache,
		Audit:       a.audit,
		RedirectURL: cfg.Analytics.RedirectURL,
		Now:         opts.Now,
	}); err != nil {
		return nil, err
	}

	if a.languages, err = invocation.NewLanguages(cfg.Languages.Working, cfg.Languages.Default); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.resolver = module.NewResolver(a.registry, lister, a.logger)
	a.loader = moduleconfig.NewLoader(a.resolver, a.logger)
	a.dispatcher, err = cronjob.NewDispatcher(cronjob.Options{
		Resolver:  a.resolver,
		Loader:    a.loader,
		Settings:  a.store,
		Languages: a.languages,
		Audit:     a.audit,
		Logger:    a.logger,
		Now:       opts.Now,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openSettings(ctx context.Context) (ports.SettingsStore, error) {
	s := a.cfg.Settings
	switch s.Backend {
	case config.BackendMemory:
		return settingsadapter.NewMemoryStore(), nil
	case config.BackendRedis:
		store := settingsadapter.NewRedisStore(settingsadapter.RedisOptions{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
			Prefix:   s.Redis.Prefix,
		})
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.logger.Debug(ctx, "settings backend ready", ports.F("backend", s.Backend), ports.F("addr", s.Redis.Addr))
		return store, nil
	case config.BackendFile, "":
		return settingsadapter.NewFileStore(s.Path), nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q", s.Backend)
	}
}

func (a *App) openAudit() (audit.Logger, error) {
	if a.cfg.Audit.Dir == "" {
		return audit.NewNullLogger(), nil
	}
	l, err := audit.NewFileLogger(audit.FileLoggerConfig{Dir: a.cfg.Audit.Dir})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, l.Close)
	return l, nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Settings returns the settings store.
func (a *App) Settings() ports.SettingsStore { return a.store }

// Logger returns the application logger.
func (a *App) Logger() ports.Logger { return a.logger }

// Registry returns the action registry.
func (a *App) Registry() *module.Registry { return a.registry }

// Close releases backends opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
