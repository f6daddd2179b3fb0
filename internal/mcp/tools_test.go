package mcp

import (
	"context"
	"encoding/json"
	"testing"

	adapter "github.com/felixgeelhaar/forkadmin/internal/adapters/settings"
	"github.com/felixgeelhaar/forkadmin/internal/app"
	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
	"github.com/felixgeelhaar/forkadmin/internal/testutil"
	"github.com/felixgeelhaar/forkadmin/internal/testutil/mocks"
	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type env struct {
	srv   *mcp.Server
	store *adapter.MemoryStore
	cache *mocks.ReportCache
}

func newTestServer(t *testing.T) *env {
	t.Helper()
	e := &env{store: adapter.NewMemoryStore(), cache: mocks.NewReportCache()}
	forkadmin, err := app.New(context.Background(), app.Options{
		Settings:  e.store,
		Modules:   module.StaticLister{"core", "analytics"},
		Analytics: mocks.NewAnalyticsService(),
		Cache:     e.cache,
		Audit:     audit.NewMemoryLogger(),
	})
	require.NoError(t, err)

	e.srv = mcp.NewServer(mcp.ServerInfo{Name: "test", Version: "1.0.0"})
	RegisterAll(e.srv, forkadmin, VersionInfo{Version: "1.2.3", Commit: "abc", BuildDate: "2024-01-01"})
	return e
}

// executeTool retrieves and executes a registered tool by name.
func executeTool(t *testing.T, srv *mcp.Server, toolName string, input interface{}) (interface{}, error) {
	t.Helper()
	tool, ok := srv.GetTool(toolName)
	require.True(t, ok, "tool %q should be registered", toolName)

	data, err := json.Marshal(input)
	require.NoError(t, err)

	return tool.Execute(context.Background(), data)
}

func TestRegisterAll(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	for _, name := range []string{
		"forkadmin_cronjob_run",
		"forkadmin_cronjob_history",
		"forkadmin_analytics_status",
		"forkadmin_analytics_reset",
		"forkadmin_status",
	} {
		_, ok := e.srv.GetTool(name)
		assert.True(t, ok, name)
	}
}

func TestCronjobRunAndHistory(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	result, err := executeTool(t, e.srv, "forkadmin_cronjob_run", CronjobRunInput{Module: "core", Action: "ping"})
	require.NoError(t, err)

	out, ok := result.(*CronjobRunOutput)
	require.True(t, ok)
	assert.True(t, out.Ran)
	assert.Equal(t, "en", out.Language)
	assert.NotEmpty(t, out.InvocationID)

	result, err = executeTool(t, e.srv, "forkadmin_cronjob_history", CronjobHistoryInput{})
	require.NoError(t, err)
	history := result.(*CronjobHistoryOutput)
	require.Len(t, history.Runs, 1)
	assert.Equal(t, out.InvocationID, history.Runs[0].InvocationID)
	assert.True(t, history.Runs[0].Success)
}

func TestCronjobRun_Redirect(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	result, err := executeTool(t, e.srv, "forkadmin_cronjob_run", CronjobRunInput{Module: "analytics", Action: "fetch_data"})
	require.NoError(t, err)

	out := result.(*CronjobRunOutput)
	assert.False(t, out.Ran)
	assert.Equal(t, "/analytics/index", out.Redirect)
}

func TestCronjobRun_Errors(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	tests := []struct {
		name  string
		input CronjobRunInput
		want  string
	}{
		{"invalid module", CronjobRunInput{Module: "../x", Action: "ping"}, "invalid module"},
		{"reserved param", CronjobRunInput{Module: "core", Action: "ping", Params: map[string]string{"module": "blog"}}, "invalid params"},
		{"unknown module", CronjobRunInput{Module: "blog", Action: "ping"}, "not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeTool(t, e.srv, "forkadmin_cronjob_run", tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAnalyticsStatusAndReset(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	testutil.Seed(t, e.store, "analytics", testutil.Linked())

	result, err := executeTool(t, e.srv, "forkadmin_analytics_status", AnalyticsStatusInput{})
	require.NoError(t, err)
	status := result.(*AnalyticsStatusOutput)
	assert.True(t, status.Linked)
	assert.Equal(t, "5001", status.ProfileID)
	assert.Equal(t, "universal_analytics", status.Tracking)

	_, err = executeTool(t, e.srv, "forkadmin_analytics_reset", AnalyticsResetInput{})
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	result, err = executeTool(t, e.srv, "forkadmin_analytics_reset", AnalyticsResetInput{Confirm: true})
	require.NoError(t, err)
	assert.True(t, result.(*AnalyticsResetOutput).Removed)
	assert.Equal(t, []string{"analytics"}, e.cache.Cleared)

	result, err = executeTool(t, e.srv, "forkadmin_analytics_status", AnalyticsStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, "awaiting_credentials", result.(*AnalyticsStatusOutput).State)
}

func TestStatusTool(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	result, err := executeTool(t, e.srv, "forkadmin_status", StatusInput{})
	require.NoError(t, err)
	out := result.(*StatusOutput)
	assert.Equal(t, "1.2.3", out.Version)
	assert.Equal(t, []string{"analytics", "core"}, out.Modules)
	assert.Equal(t, []string{"en"}, out.Languages)
}

func TestValidateCronjobHistoryInput(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateCronjobHistoryInput(&CronjobHistoryInput{Module: "core", Limit: 10}))
	assert.Error(t, ValidateCronjobHistoryInput(&CronjobHistoryInput{Limit: -1}))
	assert.Error(t, ValidateCronjobHistoryInput(&CronjobHistoryInput{Limit: MaxHistoryLimit + 1}))
	assert.Error(t, ValidateCronjobHistoryInput(&CronjobHistoryInput{Module: "Core"}))
}
