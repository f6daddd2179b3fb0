package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/forkadmin/internal/config"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Settings, cfg.Settings)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, []string{"en"}, cfg.Languages.Working)
}

func TestLoad_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "forkadmin.yaml", `
modules_dir: /srv/fork/modules
languages:
  working: [en, nl]
  default: nl
settings:
  backend: redis
  redis:
    addr: redis:6379
    db: 2
analytics:
  max_pages: 5
log:
  level: debug
  json: true
`},
		{"toml", "forkadmin.toml", `
modules_dir = "/srv/fork/modules"

[languages]
working = ["en", "nl"]
default = "nl"

[settings]
backend = "redis"

[settings.redis]
addr = "redis:6379"
db = 2

[analytics]
max_pages = 5

[log]
level = "debug"
json = true
`},
		{"ini", "forkadmin.ini", `
modules_dir = /srv/fork/modules

[languages]
working = en, nl
default = nl

[settings]
backend = redis

[settings.redis]
addr = redis:6379
db = 2

[analytics]
max_pages = 5

[log]
level = debug
json = true
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := write(t, tt.file, tt.content)

			cfg, err := config.Load(path)
			require.NoError(t, err)
			assert.Equal(t, path, cfg.Source)
			assert.Equal(t, "/srv/fork/modules", cfg.ModulesDir)
			assert.Equal(t, []string{"en", "nl"}, cfg.Languages.Working)
			assert.Equal(t, "nl", cfg.Languages.Default)
			assert.Equal(t, config.BackendRedis, cfg.Settings.Backend)
			assert.Equal(t, "redis:6379", cfg.Settings.Redis.Addr)
			assert.Equal(t, 2, cfg.Settings.Redis.DB)
			assert.Equal(t, "forkadmin:settings:", cfg.Settings.Redis.Prefix, "defaults survive")
			assert.Equal(t, 5, cfg.Analytics.MaxPages)
			assert.Equal(t, "debug", cfg.Log.Level)
			assert.True(t, cfg.Log.JSON)
		})
	}
}

func TestLoad_EnvSelectsFile(t *testing.T) {
	path := write(t, "env.yaml", "modules_dir: from-env\n")
	t.Setenv(config.EnvConfig, path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ModulesDir)
}

func TestLoad_ValidationCollectsEveryField(t *testing.T) {
	t.Parallel()

	path := write(t, "bad.yaml", `
languages:
  working: [en]
  default: fr
settings:
  backend: sqlite
analytics:
  max_pages: 0
log:
  level: loud
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Equal(t, failure.CodeInvalidConfiguration, failure.CodeOf(err))
	for _, field := range []string{"languages", "settings.backend", "analytics.max_pages", "log.level"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	t.Parallel()

	_, err := config.Load(write(t, "broken.yaml", "settings: [unclosed"))
	assert.Equal(t, failure.CodeInvalidConfiguration, failure.CodeOf(err))

	_, err = config.Load(write(t, "app.json", "{}"))
	assert.ErrorContains(t, err, "cannot parse configuration")
}

func TestValidate_BackendRequirements(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Settings.Backend = config.BackendFile
	cfg.Settings.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "settings.path")

	cfg = config.Default()
	cfg.Settings.Backend = config.BackendMemory
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join("..", "..", "forkadmin.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "nl", "fr"}, cfg.Languages.Working)
	assert.Equal(t, config.BackendFile, cfg.Settings.Backend)
	assert.Equal(t, "forkadmin:settings:", cfg.Settings.Redis.Prefix)
	assert.Equal(t, 50, cfg.Analytics.MaxPages)
}
