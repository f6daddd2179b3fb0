package app

import (
	"context"

	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/felixgeelhaar/forkadmin/internal/domain/cronjob"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/domain/invocation"
	"github.com/felixgeelhaar/forkadmin/internal/domain/linking"
	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
	"github.com/felixgeelhaar/forkadmin/internal/modules/analytics"
)

// RunCronjob runs the cronjob named by command-line tokens.
func (a *App) RunCronjob(ctx context.Context, argv []string) (*cronjob.Result, error) {
	return a.dispatcher.Run(ctx, argv)
}

// RunCronjobParams runs the cronjob named by already parsed parameters.
func (a *App) RunCronjobParams(ctx context.Context, params map[string]string) (*cronjob.Result, error) {
	return a.dispatcher.RunParams(ctx, params)
}

// CronjobHistory returns recorded cronjob runs, newest first.
func (a *App) CronjobHistory(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	return a.dispatcher.History(ctx, filter)
}

// HandleAction runs a backend action: module check, action lookup,
// language selection, config load (which may redirect), then execution.
func (a *App) HandleAction(ctx context.Context, req ActionRequest) (*invocation.Result, error) {
	if _, err := a.resolver.Locate(ctx, module.Key{Module: req.Module, Kind: module.KindAction, Action: req.Action}); err != nil {
		return nil, err
	}
	lang, err := a.languages.Select(req.Language)
	if err != nil {
		return nil, err
	}

	inv := invocation.New(invocation.Options{
		Module:   req.Module,
		Action:   req.Action,
		Language: lang,
		Params:   req.Params,
		Form:     req.Form,
		Settings: a.store,
		Logger:   a.logger,
	})
	loaded, err := a.loader.Load(ctx, inv)
	if err != nil {
		return nil, err
	}
	if loaded.Redirect != nil {
		return &invocation.Result{Redirect: loaded.Redirect}, nil
	}

	handle, err := a.resolver.Resolve(ctx, req.Module, module.KindAction, req.Action)
	if err != nil {
		return nil, err
	}
	res, err := handle.Execute(ctx, inv)
	if err != nil {
		if failure.CodeOf(err) != "" {
			return nil, err
		}
		return nil, failure.Execution(req.Module, req.Action, err)
	}
	if res == nil {
		res = &invocation.Result{}
	}
	return res, nil
}

// AnalyticsStatus reports the analytics link state and cached report.
func (a *App) AnalyticsStatus(ctx context.Context) (*analytics.Status, error) {
	res, err := a.HandleAction(ctx, ActionRequest{Module: analytics.Name, Action: "index"})
	if err != nil {
		return nil, err
	}
	status, ok := res.Body.(analytics.Status)
	if !ok {
		return nil, failure.Newf(failure.CodeExecutionFailed, "unexpected analytics index body %T", res.Body)
	}
	return &status, nil
}

// AnalyticsReset removes the analytics link and its cached reports.
func (a *App) AnalyticsReset(ctx context.Context) (*linking.Outcome, error) {
	res, err := a.HandleAction(ctx, ActionRequest{
		Module: analytics.Name,
		Action: "settings",
		Params: map[string]string{linking.ParamRemove: "session"},
	})
	if err != nil {
		return nil, err
	}
	out, _ := res.Body.(*linking.Outcome)
	return out, nil
}
