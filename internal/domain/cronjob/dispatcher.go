// Package cronjob runs unattended module tasks.
//
// A run checks module membership, locates the cronjob, selects the
// language, loads the module config and records module.action in the
// core.cronjobs setting before the cronjob executes.
package cronjob

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/domain/invocation"
	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
	"github.com/felixgeelhaar/forkadmin/internal/domain/moduleconfig"
	"github.com/felixgeelhaar/forkadmin/internal/domain/settings"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// RunsKey is the core setting listing every cronjob that has been started.
const RunsKey = "cronjobs"

// Options configures a Dispatcher.
type Options struct {
	Resolver  *module.Resolver
	Loader    *moduleconfig.Loader
	Settings  ports.SettingsStore
	Languages invocation.Languages
	Audit     audit.Logger
	Logger    ports.Logger
	Now       func() time.Time
}

// Dispatcher runs cronjobs.
type Dispatcher struct {
	resolver  *module.Resolver
	loader    *moduleconfig.Loader
	settings  ports.SettingsStore
	languages invocation.Languages
	audit     audit.Logger
	logger    ports.Logger
	now       func() time.Time
}

// Result describes a finished run. Cronjobs produce no body.
type Result struct {
	InvocationID string               `json:"invocation_id"`
	Module       string               `json:"module"`
	Action       string               `json:"action"`
	Language     string               `json:"language"`
	Redirect     *invocation.Redirect `json:"redirect,omitempty"`
	Duration     time.Duration        `json:"-"`
}

// NewDispatcher validates opts and creates a Dispatcher.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	switch {
	case opts.Resolver == nil:
		return nil, errors.New("cronjob: resolver is required")
	case opts.Loader == nil:
		return nil, errors.New("cronjob: config loader is required")
	case opts.Settings == nil:
		return nil, errors.New("cronjob: settings store is required")
	case opts.Logger == nil:
		return nil, errors.New("cronjob: logger is required")
	}
	d := &Dispatcher{
		resolver:  opts.Resolver,
		loader:    opts.Loader,
		settings:  opts.Settings,
		languages: opts.Languages,
		audit:     opts.Audit,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if d.audit == nil {
		d.audit = audit.NewNullLogger()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Run parses argv and runs the cronjob it names.
func (d *Dispatcher) Run(ctx context.Context, argv []string) (*Result, error) {
	return d.RunParams(ctx, ParseArgs(argv))
}

// RunParams runs the cronjob named by params["module"] and params["action"].
func (d *Dispatcher) RunParams(ctx context.Context, params map[string]string) (*Result, error) {
	mod, action := params[ParamModule], params[ParamAction]

	if err := d.resolver.CheckModule(ctx, mod); err != nil {
		return nil, err
	}
	if _, err := d.resolver.Locate(ctx, module.Key{Module: mod, Kind: module.KindCronjob, Action: action}); err != nil {
		return nil, err
	}
	lang, err := d.languages.Select(params[ParamLanguage])
	if err != nil {
		return nil, err
	}

	inv := invocation.New(invocation.Options{
		Module:   mod,
		Action:   action,
		Language: lang,
		Params:   params,
		Settings: d.settings,
		Logger:   d.logger.With(ports.F("kind", string(module.KindCronjob))),
	})
	res := &Result{InvocationID: inv.ID(), Module: mod, Action: action, Language: lang}

	loaded, err := d.loader.Load(ctx, inv)
	if err != nil {
		return nil, err
	}
	if loaded.Redirect != nil {
		res.Redirect = loaded.Redirect
		inv.Logger().Warn(ctx, "cronjob not run, module needs configuration",
			ports.F("redirect", loaded.Redirect.Location()))
		return res, nil
	}

	key := module.Key{Module: mod, Kind: module.KindCronjob, Action: action}.String()
	if _, err := settings.AppendUnique(ctx, d.settings, module.CoreModule, RunsKey, key); err != nil {
		return nil, err
	}

	started := d.now()
	err = d.execute(ctx, inv)
	res.Duration = d.now().Sub(started)
	d.record(ctx, inv, res, err)
	if err != nil {
		return nil, err
	}
	inv.Logger().Info(ctx, "cronjob finished", ports.F("duration", res.Duration.String()))
	return res, nil
}

func (d *Dispatcher) execute(ctx context.Context, inv *invocation.Context) error {
	handle, err := d.resolver.Resolve(ctx, inv.Module(), module.KindCronjob, inv.Action())
	if err != nil {
		return err
	}
	if _, err := handle.Execute(ctx, inv); err != nil {
		return failure.Execution(inv.Module(), inv.Action(), err)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, inv *invocation.Context, res *Result, runErr error) {
	b := audit.NewEvent(audit.EventCronjobRun)
	if runErr != nil {
		b = audit.NewEvent(audit.EventCronjobFailed).WithError(runErr)
	}
	event := b.For(inv.ID(), inv.Module(), inv.Action()).
		WithLanguage(res.Language).
		WithDuration(res.Duration).
		Build()
	if err := d.audit.Log(ctx, event); err != nil {
		inv.Logger().Warn(ctx, "audit log write failed", ports.Err(err))
	}
	if runErr != nil {
		inv.Logger().Error(ctx, "cronjob failed", ports.Err(runErr))
	}
}

// History returns recorded runs, newest first.
func (d *Dispatcher) History(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	if len(filter.Types) == 0 {
		filter.Types = []audit.EventType{audit.EventCronjobRun, audit.EventCronjobFailed}
	}
	return d.audit.Query(ctx, filter)
}
