// Package mcp exposes forkadmin operations as MCP (Model Context Protocol) tools.
package mcp

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/felixgeelhaar/forkadmin/internal/app"
	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/felixgeelhaar/forkadmin/internal/domain/cronjob"
	"github.com/felixgeelhaar/mcp-go"
)

// CronjobRunInput is the input for the forkadmin_cronjob_run tool.
type CronjobRunInput struct {
	Module   string            `json:"module" jsonschema:"required,description=Module owning the cronjob (e.g. core, analytics)"`
	Action   string            `json:"action" jsonschema:"required,description=Cronjob name (e.g. ping, fetch_data)"`
	Language string            `json:"language,omitempty" jsonschema:"description=Working language (default: configured default)"`
	Params   map[string]string `json:"params,omitempty" jsonschema:"description=Extra cronjob parameters such as days"`
}

// CronjobRunOutput is the output for the forkadmin_cronjob_run tool.
type CronjobRunOutput struct {
	InvocationID string `json:"invocation_id"`
	Module       string `json:"module"`
	Action       string `json:"action"`
	Language     string `json:"language"`
	Ran          bool   `json:"ran"`
	Redirect     string `json:"redirect,omitempty"`
	Duration     string `json:"duration,omitempty"`
}

// CronjobHistoryInput is the input for the forkadmin_cronjob_history tool.
type CronjobHistoryInput struct {
	Module string `json:"module,omitempty" jsonschema:"description=Only runs of this module"`
	Action string `json:"action,omitempty" jsonschema:"description=Only runs of this cronjob"`
	Failed bool   `json:"failed,omitempty" jsonschema:"description=Only failed runs"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of runs (default: 20)"`
}

// CronjobHistoryOutput is the output for the forkadmin_cronjob_history tool.
type CronjobHistoryOutput struct {
	Runs []CronjobRun `json:"runs"`
}

// CronjobRun is one recorded run.
type CronjobRun struct {
	InvocationID string    `json:"invocation_id"`
	Module       string    `json:"module"`
	Action       string    `json:"action"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
	DurationMS   int64     `json:"duration_ms"`
}

// AnalyticsStatusInput is the input for the forkadmin_analytics_status tool.
type AnalyticsStatusInput struct{}

// AnalyticsStatusOutput is the output for the forkadmin_analytics_status tool.
type AnalyticsStatusOutput struct {
	State       string `json:"state"`
	Linked      bool   `json:"linked"`
	Account     string `json:"account,omitempty"`
	WebProperty string `json:"web_property,omitempty"`
	Profile     string `json:"profile,omitempty"`
	ProfileID   string `json:"profile_id,omitempty"`
	Tracking    string `json:"tracking_type,omitempty"`
	ReportRows  int    `json:"report_rows"`
	ReportRange string `json:"report_range,omitempty"`
	SettingsURL string `json:"settings_url"`
}

// AnalyticsResetInput is the input for the forkadmin_analytics_reset tool.
type AnalyticsResetInput struct {
	Confirm bool `json:"confirm" jsonschema:"required,description=Must be true to remove the analytics link (safety confirmation)"`
}

// AnalyticsResetOutput is the output for the forkadmin_analytics_reset tool.
type AnalyticsResetOutput struct {
	Removed  bool   `json:"removed"`
	Redirect string `json:"redirect,omitempty"`
}

// StatusInput is the input for the forkadmin_status tool.
type StatusInput struct{}

// StatusOutput is the output for the forkadmin_status tool.
type StatusOutput struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	BuildDate string   `json:"build_date"`
	Config    string   `json:"config,omitempty"`
	Modules   []string `json:"modules"`
	Languages []string `json:"languages"`
}

// VersionInfo contains version metadata for the MCP server.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// DefaultHistoryLimit caps forkadmin_cronjob_history when no limit is given.
const DefaultHistoryLimit = 20

// ErrConfirmationRequired is returned by destructive tools without confirm=true.
var ErrConfirmationRequired = errors.New("confirmation required: set confirm=true")

// RegisterAll registers all MCP tools with the server.
func RegisterAll(srv *mcp.Server, forkadmin *app.App, versionInfo VersionInfo) {
	registerCronjobRunTool(srv, forkadmin)
	registerCronjobHistoryTool(srv, forkadmin)
	registerAnalyticsStatusTool(srv, forkadmin)
	registerAnalyticsResetTool(srv, forkadmin)
	registerStatusTool(srv, forkadmin, versionInfo)
}

func registerCronjobRunTool(srv *mcp.Server, forkadmin *app.App) {
	srv.Tool("forkadmin_cronjob_run").
		Description("Run a module cronjob. The run is recorded in the core cronjobs list and the audit log.").
		Handler(func(ctx context.Context, in CronjobRunInput) (*CronjobRunOutput, error) {
			if err := ValidateCronjobRunInput(&in); err != nil {
				return nil, err
			}
			params := maps.Clone(in.Params)
			if params == nil {
				params = map[string]string{}
			}
			params[cronjob.ParamModule] = in.Module
			params[cronjob.ParamAction] = in.Action
			if in.Language != "" {
				params[cronjob.ParamLanguage] = in.Language
			}

			res, err := forkadmin.RunCronjobParams(ctx, params)
			if err != nil {
				return nil, err
			}
			out := &CronjobRunOutput{
				InvocationID: res.InvocationID,
				Module:       res.Module,
				Action:       res.Action,
				Language:     res.Language,
				Ran:          res.Redirect == nil,
			}
			if res.Redirect != nil {
				out.Redirect = res.Redirect.Location()
			} else {
				out.Duration = res.Duration.String()
			}
			return out, nil
		})
}

func registerCronjobHistoryTool(srv *mcp.Server, forkadmin *app.App) {
	srv.Tool("forkadmin_cronjob_history").
		Description("List recent cronjob runs from the audit log, newest first.").
		ReadOnly().
		Handler(func(ctx context.Context, in CronjobHistoryInput) (*CronjobHistoryOutput, error) {
			if err := ValidateCronjobHistoryInput(&in); err != nil {
				return nil, err
			}
			limit := in.Limit
			if limit == 0 {
				limit = DefaultHistoryLimit
			}
			events, err := forkadmin.CronjobHistory(ctx, audit.QueryFilter{
				Module: in.Module,
				Action: in.Action,
				Failed: in.Failed,
				Limit:  limit,
			})
			if err != nil {
				return nil, err
			}
			out := &CronjobHistoryOutput{Runs: make([]CronjobRun, 0, len(events))}
			for _, e := range events {
				out.Runs = append(out.Runs, CronjobRun{
					InvocationID: e.InvocationID,
					Module:       e.Module,
					Action:       e.Action,
					Success:      e.Success,
					Error:        e.Error,
					At:           e.Timestamp,
					DurationMS:   e.Duration.Milliseconds(),
				})
			}
			return out, nil
		})
}

func registerAnalyticsStatusTool(srv *mcp.Server, forkadmin *app.App) {
	srv.Tool("forkadmin_analytics_status").
		Description("Show the analytics linking state, the linked profile and the cached report summary.").
		ReadOnly().
		Handler(func(ctx context.Context, _ AnalyticsStatusInput) (*AnalyticsStatusOutput, error) {
			status, err := forkadmin.AnalyticsStatus(ctx)
			if err != nil {
				return nil, err
			}
			out := &AnalyticsStatusOutput{State: string(status.State), SettingsURL: status.Settings}
			if l := status.Linked; l != nil {
				out.Linked = true
				out.Account = l.AccountName
				out.WebProperty = l.WebPropertyName
				out.Profile = l.ProfileName
				out.ProfileID = l.ProfileID
				out.Tracking = l.TrackingType
			}
			if r := status.Report; r != nil {
				out.ReportRows = r.Rows
				out.ReportRange = r.Start + ".." + r.End
			}
			return out, nil
		})
}

func registerAnalyticsResetTool(srv *mcp.Server, forkadmin *app.App) {
	srv.Tool("forkadmin_analytics_reset").
		Description("Remove the analytics link: clears credentials, token, selection and cached reports. REQUIRES confirm=true.").
		Destructive().
		Handler(func(ctx context.Context, in AnalyticsResetInput) (*AnalyticsResetOutput, error) {
			if !in.Confirm {
				return nil, ErrConfirmationRequired
			}
			outcome, err := forkadmin.AnalyticsReset(ctx)
			if err != nil {
				return nil, err
			}
			out := &AnalyticsResetOutput{Removed: true}
			if outcome != nil && outcome.Redirect != nil {
				out.Redirect = outcome.Redirect.Location()
			}
			return out, nil
		})
}

func registerStatusTool(srv *mcp.Server, forkadmin *app.App, versionInfo VersionInfo) {
	srv.Tool("forkadmin_status").
		Description("Get forkadmin version info, registered modules and working languages.").
		ReadOnly().
		Handler(func(_ context.Context, _ StatusInput) (*StatusOutput, error) {
			cfg := forkadmin.Config()
			return &StatusOutput{
				Version:   versionInfo.Version,
				Commit:    versionInfo.Commit,
				BuildDate: versionInfo.BuildDate,
				Config:    cfg.Source,
				Modules:   forkadmin.Registry().Modules(),
				Languages: cfg.Languages.Working,
			}, nil
		})
}
