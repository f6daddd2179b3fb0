// Package moduleconfig loads module configurations and enforces their
// required-settings invariants.
package moduleconfig

import (
	"context"
	"fmt"
	"slices"

	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/domain/invocation"
	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
	"github.com/felixgeelhaar/forkadmin/internal/domain/settings"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// Violation is one failed required-settings invariant.
type Violation struct {
	Key     string
	Message string
}

// Config is a module configuration.
type Config interface {
	Module() string
	// DefaultAction is the safe action used as redirect target.
	DefaultAction() string
	// SettingsAction is the setup action that stays reachable while the
	// module is not configured.
	SettingsAction() string
	DisabledActions() []string
	Check(ctx context.Context, store ports.SettingsStore) ([]Violation, error)
	RegisterServices(ctx context.Context, inv *invocation.Context) error
}

// Base implements Config for modules whose invariants are "these keys
// must be set". Modules embed it and override what they need.
type Base struct {
	Name     string
	Default  string
	Setup    string
	Disabled []string
	Required []string
}

func (b Base) Module() string { return b.Name }

func (b Base) DefaultAction() string {
	if b.Default == "" {
		return "index"
	}
	return b.Default
}

func (b Base) SettingsAction() string {
	if b.Setup == "" {
		return "settings"
	}
	return b.Setup
}

func (b Base) DisabledActions() []string { return slices.Clone(b.Disabled) }

// Check reports every required key without a value.
func (b Base) Check(ctx context.Context, store ports.SettingsStore) ([]Violation, error) {
	var out []Violation
	for _, key := range b.Required {
		v, err := settings.String(ctx, store, b.Name, key)
		if err != nil {
			return nil, err
		}
		if v == "" {
			out = append(out, Violation{Key: key, Message: fmt.Sprintf("setting %s.%s must be set", b.Name, key)})
		}
	}
	return out, nil
}

// RegisterServices does nothing.
func (Base) RegisterServices(context.Context, *invocation.Context) error { return nil }

// Register adds a configuration factory for moduleName to reg.
func Register(reg *module.Registry, moduleName, identifier string, fn func() Config) error {
	return reg.Register(module.Definition{
		Key:        module.Key{Module: moduleName, Kind: module.KindConfig},
		Identifier: identifier,
		New:        func() any { return fn() },
	})
}

// Loaded is the outcome of Load.
type Loaded struct {
	Config     Config
	Violations []Violation
	// Redirect is set when invariants fail for a non-exempt action.
	Redirect *invocation.Redirect
}

// Loader resolves and evaluates module configurations.
type Loader struct {
	resolver *module.Resolver
	logger   ports.Logger
}

// NewLoader creates a Loader backed by resolver.
func NewLoader(resolver *module.Resolver, logger ports.Logger) *Loader {
	return &Loader{resolver: resolver, logger: logger}
}

// Load resolves the config of inv's module, registers its services into
// inv and evaluates its invariants against inv's action.
func (l *Loader) Load(ctx context.Context, inv *invocation.Context) (*Loaded, error) {
	def, err := l.resolver.Locate(ctx, module.Key{Module: inv.Module(), Kind: module.KindConfig})
	if err != nil {
		return nil, err
	}
	impl, err := l.resolver.Instantiate(ctx, def)
	if err != nil {
		return nil, err
	}
	cfg, ok := impl.(Config)
	if !ok {
		return nil, failure.ConfigIdentifierMismatch(def.Key.Identifier(), fmt.Sprintf("%T", impl), def.Location())
	}

	if slices.Contains(cfg.DisabledActions(), inv.Action()) {
		return nil, failure.ActionDisabled(inv.Module(), inv.Action())
	}

	if err := cfg.RegisterServices(ctx, inv); err != nil {
		return nil, fmt.Errorf("register services for %s: %w", inv.Module(), err)
	}

	violations, err := cfg.Check(ctx, inv.Settings())
	if err != nil {
		return nil, fmt.Errorf("check %s config: %w", inv.Module(), err)
	}

	loaded := &Loaded{Config: cfg, Violations: violations}
	if len(violations) == 0 || exempt(cfg, inv.Action()) {
		return loaded, nil
	}

	loaded.Redirect = &invocation.Redirect{Module: inv.Module(), Action: cfg.DefaultAction()}
	inv.Logger().Info(ctx, "module not configured, redirecting",
		ports.F("target", loaded.Redirect.Location()),
		ports.F("missing", violations[0].Key),
	)
	return loaded, nil
}

func exempt(cfg Config, action string) bool {
	return action == cfg.DefaultAction() || action == cfg.SettingsAction()
}

// Unconfigured wraps violations as an InvalidConfiguration error, for
// callers that cannot follow a redirect.
func Unconfigured(moduleName string, violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return failure.Newf(failure.CodeInvalidConfiguration, "module %q is not configured", moduleName).
		WithContext(violations[0].Key).
		WithSuggestion(violations[0].Message)
}
