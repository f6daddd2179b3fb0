//go:build e2e

package framework

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exit codes returned by the forkadmin binary.
const (
	ExitOK = 0
	// ExitFatal is returned when a request is refused before it runs.
	ExitFatal = 2
)

// SettingsFile is where the default config keeps settings.
const SettingsFile = "var/settings.yaml"

func dump(r *Result) string {
	return fmt.Sprintf("stdout:\n%s\nstderr:\n%s", r.Stdout, r.Stderr)
}

// AssertExit checks the exit code of a run.
func AssertExit(t *testing.T, r *Result, code int) {
	t.Helper()
	assert.Equal(t, code, r.ExitCode, dump(r))
	if code == ExitOK {
		assert.NoError(t, r.Err, dump(r))
	}
}

// AssertOutput checks that every fragment appears on stdout.
func AssertOutput(t *testing.T, r *Result, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		assert.Contains(t, r.Stdout, f)
	}
}

// AssertDiagnostic checks that fragment appears on stderr.
func AssertDiagnostic(t *testing.T, r *Result, fragment string) {
	t.Helper()
	assert.Contains(t, r.Stderr, fragment)
}

// AssertRan checks a successful cronjob run of key ("module.action") in lang.
func AssertRan(t *testing.T, r *Result, key, lang string) {
	t.Helper()
	AssertExit(t, r, ExitOK)
	AssertOutput(t, r, fmt.Sprintf("%s (%s) ran in", key, lang))
}

// AssertRedirected checks a run that was sent to location instead of running.
func AssertRedirected(t *testing.T, r *Result, location string) {
	t.Helper()
	AssertExit(t, r, ExitOK)
	AssertOutput(t, r, "redirect: "+location)
}

// AssertAccepted checks that a wizard submission was accepted.
func AssertAccepted(t *testing.T, r *Result) {
	t.Helper()
	AssertExit(t, r, ExitOK)
	AssertOutput(t, r, `"accepted": true`)
}

// AssertStored checks that the settings file at path holds every fragment.
func AssertStored(t *testing.T, env *Environment, path string, fragments ...string) {
	t.Helper()
	require.True(t, env.FileExists(path), "settings file %s was not written", path)
	data := env.ReadFile(path)
	for _, f := range fragments {
		assert.Contains(t, data, f, "settings file %s", path)
	}
}

// AssertUntouched checks that nothing was written at path.
func AssertUntouched(t *testing.T, env *Environment, path string) {
	t.Helper()
	assert.False(t, env.FileExists(path), "%s was written", path)
}

// AssertAuditDir checks that the audit trail directory was created.
func AssertAuditDir(t *testing.T, env *Environment) {
	t.Helper()
	assert.DirExists(t, filepath.Join(env.RootDir(), "var", "audit"))
}
