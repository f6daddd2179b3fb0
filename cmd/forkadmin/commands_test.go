package main

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronjobCommand(t *testing.T) {
	e := useTestApp(t)

	out := requireNoErr(t)(executeCommand(t, "cronjob", "--module=core", "--action=ping", "--dry"))
	assert.Contains(t, out, "core.ping (en) ran in")

	ping, err := e.store.Get(t.Context(), "core", "last_ping", nil)
	require.NoError(t, err)
	assert.NotNil(t, ping)

	events := e.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventCronjobRun, events[0].Type)
}

func TestCronjobCommand_Redirect(t *testing.T) {
	useTestApp(t)

	out := requireNoErr(t)(executeCommand(t, "cronjob", "module=analytics", "action=fetch_data"))
	assert.Contains(t, out, "redirect: /analytics/index")
}

func TestCronjobCommand_Errors(t *testing.T) {
	useTestApp(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown module", []string{"cronjob", "--module=blog", "--action=ping"}, failure.CodeAccessDenied},
		{"unknown cronjob", []string{"cronjob", "--module=core", "--action=purge"}, failure.CodeNotFound},
		{"bad language", []string{"cronjob", "--module=core", "--action=ping", "--language=fr"}, failure.CodeInvalidLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, failure.CodeOf(err))
			assert.Equal(t, failure.ExitFatal, failure.ExitCode(err))
		})
	}
}

func TestCronjobCommand_FetchDataFailure(t *testing.T) {
	e := useTestApp(t)
	testutil.Seed(t, e.store, "analytics", testutil.Linked())
	e.provider.DataErr = errors.New("quota exceeded")

	_, err := executeCommand(t, "cronjob", "--module=analytics", "--action=fetch_data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	events := e.audit.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
}

func TestActionCommand(t *testing.T) {
	useTestApp(t)

	out := requireNoErr(t)(executeCommand(t, "action", "core", "index"))
	var res struct {
		Body map[string]any `json:"body"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, res.Body, "modules")
}

func TestActionCommand_FormSubmission(t *testing.T) {
	e := useTestApp(t)

	out := requireNoErr(t)(executeCommand(t, "action", "analytics", "settings", "--form", "client_id=abc", "client_secret=xyz"))
	assert.Contains(t, out, `"accepted": true`)
	assert.Contains(t, out, `"redirect"`)

	secret, err := e.store.Get(t.Context(), "analytics", "client_secret", nil)
	require.NoError(t, err)
	assert.Equal(t, "xyz", secret)
}

func TestActionCommand_BadPair(t *testing.T) {
	useTestApp(t)

	_, err := executeCommand(t, "action", "core", "index", "novalue")
	require.Error(t, err)
	assert.Equal(t, failure.CodeValidationFailed, failure.CodeOf(err))
}

func TestHistoryCommand(t *testing.T) {
	useTestApp(t)

	out := requireNoErr(t)(executeCommand(t, "history"))
	assert.Contains(t, out, "No cronjob runs recorded.")

	requireNoErr(t)(executeCommand(t, "cronjob", "--module=core", "--action=ping"))
	out = requireNoErr(t)(executeCommand(t, "history"))
	assert.Contains(t, out, "CRONJOB")
	assert.Contains(t, out, "core.ping")

	out = requireNoErr(t)(executeCommand(t, "history", "--json"))
	var events []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "ping", events[0]["action"])
}

func TestAnalyticsCommands(t *testing.T) {
	e := useTestApp(t)
	testutil.Seed(t, e.store, "analytics", testutil.Linked())

	out := requireNoErr(t)(executeCommand(t, "analytics", "status"))
	assert.Contains(t, out, "linked")
	assert.Contains(t, out, "All Web Site Data (5001)")

	_, err := executeCommand(t, "analytics", "reset")
	require.Error(t, err)
	assert.Contains(t, formatError(err), "--yes")

	out = requireNoErr(t)(executeCommand(t, "analytics", "reset", "--yes"))
	assert.Contains(t, out, "analytics link removed")
	assert.Equal(t, []string{"analytics"}, e.cache.Cleared)

	out = requireNoErr(t)(executeCommand(t, "analytics", "status"))
	assert.Contains(t, out, "awaiting_credentials")
	assert.Contains(t, out, "/analytics/settings")
}

func TestNewMCPServer(t *testing.T) {
	useTestApp(t)

	a, err := openApp(t.Context(), nil)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	srv := newMCPServer(a)
	_, ok := srv.GetTool("forkadmin_cronjob_run")
	assert.True(t, ok)
}
