// Package analytics implements the analytics module: linking an
// analytics profile through the settings wizard and fetching report
// data for it.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/domain/invocation"
	"github.com/felixgeelhaar/forkadmin/internal/domain/linking"
	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
	"github.com/felixgeelhaar/forkadmin/internal/domain/moduleconfig"
	"github.com/felixgeelhaar/forkadmin/internal/domain/settings"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// Name is the module name.
const Name = "analytics"

// Services registered by the module config.
const (
	ServiceProvider = "analytics.provider"
	ServiceCache    = "analytics.cache"
	ServiceAudit    = "analytics.audit"
)

// ReportName is the cache entry written by fetch_data.
const ReportName = "report"

// DefaultDays is the fetch_data window when no days parameter is given.
const DefaultDays = 30

// Metrics and dimensions requested by fetch_data.
var (
	ReportMetrics    = []string{"pageviews", "visitors"}
	ReportDimensions = []string{"date"}
)

// Deps are the collaborators the module registers per invocation.
type Deps struct {
	Service     ports.AnalyticsService
	Cache       ports.ReportCache
	Audit       audit.Logger
	RedirectURL string
	Now         func() time.Time
}

// Report is the cached result of fetch_data.
type Report struct {
	ProfileID string               `json:"profile_id"`
	Start     string               `json:"start"`
	End       string               `json:"end"`
	Metrics   []string             `json:"metrics"`
	FetchedAt time.Time            `json:"fetched_at"`
	Rows      []ports.AnalyticsRow `json:"rows"`
}

// Status is the body of the index action.
type Status struct {
	State    linking.State           `json:"state"`
	Linked   *linking.LinkedResource `json:"linked,omitempty"`
	Report   *ReportSummary          `json:"report,omitempty"`
	Settings string                  `json:"settings_url"`
}

// ReportSummary describes the cached report without its rows.
type ReportSummary struct {
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Rows      int       `json:"rows"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Config is the analytics module configuration. The module counts as
// configured once an account is linked.
type Config struct {
	moduleconfig.Base
	deps Deps
}

// RegisterServices exposes the provider, report cache and audit log to
// the module's actions.
func (c Config) RegisterServices(_ context.Context, inv *invocation.Context) error {
	if c.deps.Service == nil || c.deps.Cache == nil {
		return errors.New("analytics: provider and cache are required")
	}
	s := inv.Services()
	s.Register(ServiceProvider, c.deps.Service)
	s.Register(ServiceCache, c.deps.Cache)
	if c.deps.Audit != nil {
		s.Register(ServiceAudit, c.deps.Audit)
	}
	return nil
}

// Register adds the analytics config, actions and cronjobs to reg.
func Register(reg *module.Registry, deps Deps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	err := moduleconfig.Register(reg, Name, "BackendAnalyticsConfig", func() moduleconfig.Config {
		return Config{
			Base: moduleconfig.Base{Name: Name, Required: []string{linking.KeyAccountID}},
			deps: deps,
		}
	})
	if err != nil {
		return err
	}
	if err := reg.RegisterAction(Name, "index", "BackendAnalyticsIndex", func() module.Action {
		return module.ActionFunc(index)
	}); err != nil {
		return err
	}
	if err := reg.RegisterAction(Name, "settings", "BackendAnalyticsSettings", func() module.Action {
		return module.ActionFunc(func(ctx context.Context, inv *invocation.Context) (*invocation.Result, error) {
			return settingsAction(ctx, inv, deps)
		})
	}); err != nil {
		return err
	}
	return reg.RegisterCronjob(Name, "fetch_data", "BackendAnalyticsCronjobFetchData", func() module.Action {
		return module.ActionFunc(func(ctx context.Context, inv *invocation.Context) (*invocation.Result, error) {
			return fetchData(ctx, inv, deps.Now)
		})
	})
}

// NewEngine builds a linking engine from the services registered on inv.
func NewEngine(inv *invocation.Context, redirectURL string) (*linking.Engine, error) {
	service, err := invocation.Lookup[ports.AnalyticsService](inv.Services(), ServiceProvider)
	if err != nil {
		return nil, err
	}
	cache, err := invocation.Lookup[ports.ReportCache](inv.Services(), ServiceCache)
	if err != nil {
		return nil, err
	}
	auditLog, _ := invocation.Lookup[audit.Logger](inv.Services(), ServiceAudit)

	return linking.NewEngine(linking.Options{
		Module:       Name,
		RedirectURL:  redirectURL,
		InvocationID: inv.ID(),
		Store:        inv.Settings(),
		Service:      service,
		Cache:        cache,
		Audit:        auditLog,
		Logger:       inv.Logger(),
	})
}

func index(ctx context.Context, inv *invocation.Context) (*invocation.Result, error) {
	engine, err := NewEngine(inv, "")
	if err != nil {
		return nil, err
	}
	state, err := engine.CurrentState(ctx)
	if err != nil {
		return nil, err
	}
	status := Status{
		State:    state,
		Settings: invocation.Redirect{Module: Name, Action: "settings"}.Location(),
	}
	if state == linking.StateLinked {
		out, err := engine.Handle(ctx, linking.Input{})
		if err != nil {
			return nil, err
		}
		status.Linked = out.Linked
	}

	cache, err := invocation.Lookup[ports.ReportCache](inv.Services(), ServiceCache)
	if err != nil {
		return nil, err
	}
	var report Report
	found, err := cache.Get(ctx, Name, ReportName, &report)
	if err != nil {
		inv.Logger().Warn(ctx, "cached report unreadable", ports.Err(err))
	}
	if found {
		status.Report = &ReportSummary{Start: report.Start, End: report.End, Rows: len(report.Rows), FetchedAt: report.FetchedAt}
	}
	return &invocation.Result{Body: status}, nil
}

func settingsAction(ctx context.Context, inv *invocation.Context, deps Deps) (*invocation.Result, error) {
	engine, err := NewEngine(inv, deps.RedirectURL)
	if err != nil {
		return nil, err
	}
	out, err := engine.Handle(ctx, linking.Input{Query: inv.Params(), Form: inv.Form()})
	if err != nil {
		return nil, err
	}
	return &invocation.Result{Body: out, Redirect: out.Redirect}, nil
}

func fetchData(ctx context.Context, inv *invocation.Context, now func() time.Time) (*invocation.Result, error) {
	days := DefaultDays
	if raw := inv.Param("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, failure.Newf(failure.CodeValidationFailed, "days must be a positive integer, got %q", raw)
		}
		days = n
	}

	snap, err := linkingSnapshot(ctx, inv)
	if err != nil {
		return nil, err
	}
	if linking.Classify(snap) != linking.StateLinked {
		return nil, failure.New(failure.CodeInvalidConfiguration, "analytics is not linked to a profile").
			WithSuggestion("complete the analytics settings wizard first")
	}

	provider, err := invocation.Lookup[ports.AnalyticsService](inv.Services(), ServiceProvider)
	if err != nil {
		return nil, err
	}
	cache, err := invocation.Lookup[ports.ReportCache](inv.Services(), ServiceCache)
	if err != nil {
		return nil, err
	}

	end := now().UTC()
	start := end.AddDate(0, 0, -days)
	query := ports.AnalyticsQuery{
		ProfileID:  snap[linking.KeyProfileID],
		Start:      start,
		End:        end,
		Metrics:    ReportMetrics,
		Dimensions: ReportDimensions,
	}
	session := ports.AnalyticsSession{
		AnalyticsCredentials: ports.AnalyticsCredentials{
			ClientID:     snap[linking.KeyClientID],
			ClientSecret: snap[linking.KeyClientSecret],
		},
		Token: snap[linking.KeyToken],
	}

	report := Report{
		ProfileID: query.ProfileID,
		Start:     start.Format(time.DateOnly),
		End:       end.Format(time.DateOnly),
		Metrics:   ReportMetrics,
		FetchedAt: end,
		Rows:      []ports.AnalyticsRow{},
	}
	for row, err := range provider.Data(ctx, session, query) {
		if err != nil {
			return nil, err
		}
		report.Rows = append(report.Rows, row)
	}
	if err := cache.Put(ctx, Name, ReportName, report); err != nil {
		return nil, fmt.Errorf("cache report: %w", err)
	}
	inv.Logger().Info(ctx, "analytics report fetched",
		ports.F("profile_id", query.ProfileID),
		ports.F("days", days),
		ports.F("rows", len(report.Rows)),
	)
	return &invocation.Result{}, nil
}

func linkingSnapshot(ctx context.Context, inv *invocation.Context) (linking.Snapshot, error) {
	snap, err := settings.Snapshot(ctx, inv.Settings(), Name, linking.SnapshotKeys()...)
	if err != nil {
		return nil, err
	}
	return linking.Snapshot(snap), nil
}
