package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	adapter "github.com/felixgeelhaar/forkadmin/internal/adapters/settings"
	"github.com/felixgeelhaar/forkadmin/internal/app"
	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
	"github.com/felixgeelhaar/forkadmin/internal/testutil/mocks"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store    *adapter.MemoryStore
	provider *mocks.AnalyticsService
	cache    *mocks.ReportCache
	audit    *audit.MemoryLogger
}

// useTestApp points openApp at an in-memory application.
func useTestApp(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		store:    adapter.NewMemoryStore(),
		provider: mocks.NewAnalyticsService(),
		cache:    mocks.NewReportCache(),
		audit:    audit.NewMemoryLogger(),
	}
	original := openApp
	openApp = func(ctx context.Context, _ io.Writer) (*app.App, error) {
		return app.New(ctx, app.Options{
			Settings:  e.store,
			Modules:   module.StaticLister{"core", "analytics"},
			Analytics: e.provider,
			Cache:     e.cache,
			Audit:     e.audit,
		})
	}
	t.Cleanup(func() { openApp = original })
	return e
}

// executeCommand runs the root command with args and returns its stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs([]string{}) })

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	verbose = false
	actionLanguage, actionForm = "", false
	historyModule, historyAction, historyLimit, historyDays = "", "", 20, 0
	historyFailures, historyJSON = false, false
	analyticsResetYes = false
}

// requireNoErr wraps executeCommand results, failing the test on error.
func requireNoErr(t *testing.T) func(string, error) string {
	t.Helper()
	return func(out string, err error) string {
		require.NoError(t, err, out)
		return out
	}
}
