// Package config loads the forkadmin application configuration from a
// YAML, TOML or INI file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/domain/invocation"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable selecting the config file.
const EnvConfig = "FORKADMIN_CONFIG"

// DefaultPath is used when neither a path nor EnvConfig is given.
const DefaultPath = "forkadmin.yaml"

// Settings backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the application configuration.
type Config struct {
	ModulesDir string    `yaml:"modules_dir" toml:"modules_dir"`
	Languages  Languages `yaml:"languages" toml:"languages"`
	Settings   Settings  `yaml:"settings" toml:"settings"`
	Analytics  Analytics `yaml:"analytics" toml:"analytics"`
	Cache      Cache     `yaml:"cache" toml:"cache"`
	Audit      Audit     `yaml:"audit" toml:"audit"`
	Log        Log       `yaml:"log" toml:"log"`

	// Source is the file the configuration was read from, empty when
	// only defaults apply.
	Source string `yaml:"-" toml:"-"`
}

// Languages configures the working language set.
type Languages struct {
	Working []string `yaml:"working" toml:"working"`
	Default string   `yaml:"default" toml:"default"`
}

// Settings selects and configures the settings store.
type Settings struct {
	Backend string `yaml:"backend" toml:"backend"`
	Path    string `yaml:"path" toml:"path"`
	Redis   Redis  `yaml:"redis" toml:"redis"`
}

// Redis configures the redis settings backend.
type Redis struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
}

// Analytics configures the analytics provider.
type Analytics struct {
	RedirectURL string `yaml:"redirect_url" toml:"redirect_url"`
	MaxPages    int    `yaml:"max_pages" toml:"max_pages"`
}

// Cache configures the report cache.
type Cache struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// Audit configures the audit event log. An empty Dir disables it.
type Audit struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// Log configures console logging.
type Log struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ModulesDir: "modules",
		Languages:  Languages{Working: []string{"en"}, Default: "en"},
		Settings: Settings{
			Backend: BackendFile,
			Path:    filepath.Join("var", "settings.yaml"),
			Redis:   Redis{Addr: "localhost:6379", Prefix: "forkadmin:settings:"},
		},
		Analytics: Analytics{MaxPages: 50},
		Cache:     Cache{Dir: filepath.Join("var", "cache")},
		Audit:     Audit{Dir: filepath.Join("var", "audit")},
		Log:       Log{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path falls back to
// EnvConfig, then DefaultPath. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(cfg, filepath.Ext(path), data); err != nil {
		return nil, failure.New(failure.CodeInvalidConfiguration, "cannot parse configuration").
			WithContext(path).
			WithUnderlying(err)
	}
	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext onto cfg.
func Parse(cfg *Config, ext string, data []byte) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".ini":
		return parseINI(cfg, data)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

func parseINI(cfg *Config, data []byte) error {
	f, err := ini.Load(data)
	if err != nil {
		return err
	}
	root := f.Section(ini.DefaultSection)
	setString(root, "modules_dir", &cfg.ModulesDir)

	langs := f.Section("languages")
	if langs.HasKey("working") {
		cfg.Languages.Working = langs.Key("working").Strings(",")
	}
	setString(langs, "default", &cfg.Languages.Default)

	s := f.Section("settings")
	setString(s, "backend", &cfg.Settings.Backend)
	setString(s, "path", &cfg.Settings.Path)

	r := f.Section("settings.redis")
	setString(r, "addr", &cfg.Settings.Redis.Addr)
	setString(r, "password", &cfg.Settings.Redis.Password)
	setString(r, "prefix", &cfg.Settings.Redis.Prefix)
	if r.HasKey("db") {
		if cfg.Settings.Redis.DB, err = r.Key("db").Int(); err != nil {
			return fmt.Errorf("settings.redis.db: %w", err)
		}
	}

	a := f.Section("analytics")
	setString(a, "redirect_url", &cfg.Analytics.RedirectURL)
	if a.HasKey("max_pages") {
		if cfg.Analytics.MaxPages, err = a.Key("max_pages").Int(); err != nil {
			return fmt.Errorf("analytics.max_pages: %w", err)
		}
	}

	setString(f.Section("cache"), "dir", &cfg.Cache.Dir)
	setString(f.Section("audit"), "dir", &cfg.Audit.Dir)

	l := f.Section("log")
	setString(l, "level", &cfg.Log.Level)
	if l.HasKey("json") {
		if cfg.Log.JSON, err = l.Key("json").Bool(); err != nil {
			return fmt.Errorf("log.json: %w", err)
		}
	}
	return nil
}

func setString(s *ini.Section, key string, dst *string) {
	if s.HasKey(key) {
		*dst = s.Key(key).String()
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	errs := failure.NewErrorList()
	errs.Required("modules_dir", c.ModulesDir)

	if _, err := invocation.NewLanguages(c.Languages.Working, c.Languages.Default); err != nil {
		errs.Add("languages", err.Error())
	}

	switch c.Settings.Backend {
	case BackendFile:
		errs.Required("settings.path", c.Settings.Path)
	case BackendRedis:
		errs.Required("settings.redis.addr", c.Settings.Redis.Addr)
		if c.Settings.Redis.DB < 0 {
			errs.Add("settings.redis.db", "must not be negative")
		}
	case BackendMemory:
	default:
		errs.Add("settings.backend", fmt.Sprintf("must be one of %s, %s, %s", BackendFile, BackendRedis, BackendMemory))
	}

	if c.Analytics.MaxPages < 1 {
		errs.Add("analytics.max_pages", "must be at least 1")
	}
	errs.Required("cache.dir", c.Cache.Dir)
	if _, err := ports.ParseLevel(c.Log.Level); err != nil {
		errs.Add("log.level", err.Error())
	}

	if !errs.HasErrors() {
		return nil
	}
	return failure.Newf(failure.CodeInvalidConfiguration, "invalid configuration: %s", errs.Error()).
		WithContext(c.Source).
		WithUnderlying(errs)
}
