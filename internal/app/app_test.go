package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/felixgeelhaar/forkadmin/internal/adapters/logging"
	adapter "github.com/felixgeelhaar/forkadmin/internal/adapters/settings"
	"github.com/felixgeelhaar/forkadmin/internal/app"
	"github.com/felixgeelhaar/forkadmin/internal/config"
	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/domain/linking"
	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
	"github.com/felixgeelhaar/forkadmin/internal/testutil"
	"github.com/felixgeelhaar/forkadmin/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	app     *app.App
	store   *adapter.MemoryStore
	service *mocks.AnalyticsService
	cache   *mocks.ReportCache
	audit   *audit.MemoryLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   adapter.NewMemoryStore(),
		service: mocks.NewAnalyticsService(),
		cache:   mocks.NewReportCache(),
		audit:   audit.NewMemoryLogger(),
	}
	a, err := app.New(context.Background(), app.Options{
		Logger:    logging.NewNopLogger(),
		Settings:  f.store,
		Modules:   module.StaticLister{"core", "analytics"},
		Analytics: f.service,
		Cache:     f.cache,
		Audit:     f.audit,
		Now:       func() time.Time { return time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	f.app = a
	return f
}

func TestRunCronjob(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res, err := f.app.RunCronjob(context.Background(), []string{"forkadmin", "--module=core", "--action=ping"})
	require.NoError(t, err)
	assert.Equal(t, "en", res.Language)
	assert.Equal(t, "2024-01-31T00:00:00Z", f.store.Dump("core")["last_ping"])

	history, err := f.app.CronjobHistory(context.Background(), audit.QueryFilter{Module: "core"})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestHandleAction_UnknownModuleAndAction(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.app.HandleAction(context.Background(), app.ActionRequest{Module: "blog", Action: "index"})
	assert.Equal(t, failure.CodeAccessDenied, failure.CodeOf(err))

	_, err = f.app.HandleAction(context.Background(), app.ActionRequest{Module: "analytics", Action: "export"})
	assert.Equal(t, failure.CodeNotFound, failure.CodeOf(err))

	_, err = f.app.HandleAction(context.Background(), app.ActionRequest{Module: "analytics", Action: "index", Language: "xx"})
	assert.Equal(t, failure.CodeInvalidLanguage, failure.CodeOf(err))
}

func TestAnalyticsStatusAndReset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	testutil.Seed(t, f.store, "analytics", testutil.Linked())

	status, err := f.app.AnalyticsStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, linking.StateLinked, status.State)

	out, err := f.app.AnalyticsReset(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "/analytics/settings?report=removed", out.Redirect.Location())

	status, err = f.app.AnalyticsStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, linking.StateAwaitingCredentials, status.State)
	assert.Equal(t, []string{"analytics"}, f.cache.Cleared)
}

func noRedirect(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

func TestHandler(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	srv := httptest.NewServer(f.app.Handler())
	t.Cleanup(srv.Close)
	client := &http.Client{CheckRedirect: noRedirect}

	get := func(path string) *http.Response {
		t.Helper()
		resp, err := client.Get(srv.URL + path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("cronjob ok", func(t *testing.T) {
		resp := get("/cronjob?module=core&action=ping")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("cronjob forbidden", func(t *testing.T) {
		resp := get("/cronjob?module=blog&action=ping")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("cronjob missing", func(t *testing.T) {
		resp := get("/cronjob?module=core&action=nope")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("cronjob redirects when unconfigured", func(t *testing.T) {
		resp := get("/cronjob?module=analytics&action=fetch_data")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/analytics/index", resp.Header.Get("Location"))
	})

	t.Run("action json", func(t *testing.T) {
		resp := get("/analytics/settings")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "awaiting_credentials", body["state"])
	})

	t.Run("action not found", func(t *testing.T) {
		resp := get("/core/missing")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var body struct {
			Error struct{ Code string } `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, failure.CodeNotFound, body.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/core/index", nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestHandler_WizardPost(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	srv := httptest.NewServer(f.app.Handler())
	t.Cleanup(srv.Close)
	client := &http.Client{CheckRedirect: noRedirect}

	form := url.Values{"client_id": {"client-123.apps.example"}, "client_secret": {"s3cret"}}
	resp, err := client.Post(srv.URL+"/analytics/settings", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/analytics/settings", resp.Header.Get("Location"))

	resp, err = client.Get(srv.URL + "/analytics/settings?code=4/ok")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "/analytics/settings?report=authorized", resp.Header.Get("Location"))

	form = url.Values{"account": {"1001"}}
	resp, err = client.Post(srv.URL+"/analytics/settings", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out linking.Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Accepted)
	assert.Len(t, out.Errors, 2)
}

func TestHandler_WizardPost_BlankCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"both blank", "client_id=&client_secret=", []string{"client_id", "client_secret"}},
		{"secret blank", "client_id=abc&client_secret=", []string{"client_secret"}},
		{"whitespace id", "client_id=+++&client_secret=s3cret", []string{"client_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			srv := httptest.NewServer(f.app.Handler())
			t.Cleanup(srv.Close)

			resp, err := srv.Client().Post(srv.URL+"/analytics/settings", "application/x-www-form-urlencoded", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var out linking.Outcome
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.False(t, out.Accepted)
			got := make([]string, 0, len(out.Errors))
			for _, fe := range out.Errors {
				got = append(got, fe.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)

			id, err := f.store.Get(context.Background(), "analytics", "client_id", nil)
			require.NoError(t, err)
			assert.Nil(t, id, "nothing is saved")
		})
	}
}

func TestNew_FileBackendAndAuditDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.ModulesDir = filepath.Join(dir, "modules")
	cfg.Settings.Path = filepath.Join(dir, "settings.yaml")
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.Audit.Dir = filepath.Join(dir, "audit")

	a, err := app.New(context.Background(), app.Options{Config: cfg, Analytics: mocks.NewAnalyticsService()})
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	_, err = a.RunCronjob(context.Background(), []string{"x", "--module=core", "--action=ping"})
	require.NoError(t, err)

	_, err = a.RunCronjob(context.Background(), []string{"x", "--module=analytics", "--action=fetch_data"})
	assert.Equal(t, failure.CodeAccessDenied, failure.CodeOf(err), "analytics is not installed in modules_dir")

	assert.FileExists(t, cfg.Settings.Path)
	assert.FileExists(t, filepath.Join(cfg.Audit.Dir, "audit.jsonl"))
}

func TestNew_RedisBackend(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Settings.Backend = config.BackendRedis
	cfg.Settings.Redis.Addr = mr.Addr()
	cfg.Audit.Dir = ""

	a, err := app.New(context.Background(), app.Options{Config: cfg, Modules: module.StaticLister{"core"}})
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	_, err = a.RunCronjob(context.Background(), []string{"x", "--module=core", "--action=ping"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("forkadmin:settings:core"))

	mr.Close()
	cfg2 := *cfg
	_, err = app.New(context.Background(), app.Options{Config: &cfg2})
	assert.Error(t, err)
}
