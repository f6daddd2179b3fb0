package module

import (
	"context"
	"fmt"
	"slices"

	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/domain/invocation"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// Action is the single entry point of an action or cronjob.
type Action interface {
	Execute(ctx context.Context, inv *invocation.Context) (*invocation.Result, error)
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context, inv *invocation.Context) (*invocation.Result, error)

// Execute calls f.
func (f ActionFunc) Execute(ctx context.Context, inv *invocation.Context) (*invocation.Result, error) {
	return f(ctx, inv)
}

// Handle is a resolved implementation bound to one key.
type Handle struct {
	def    Definition
	action Action
}

func (h *Handle) Module() string     { return h.def.Module }
func (h *Handle) Action() string     { return h.def.Action }
func (h *Handle) Kind() Kind         { return h.def.Kind }
func (h *Handle) Identifier() string { return h.def.Identifier }

// Execute runs the bound implementation.
func (h *Handle) Execute(ctx context.Context, inv *invocation.Context) (*invocation.Result, error) {
	return h.action.Execute(ctx, inv)
}

// Resolver maps (module, kind, action) to implementations.
type Resolver struct {
	registry *Registry
	modules  ports.ModuleLister
	logger   ports.Logger
}

// NewResolver creates a resolver over registry, accepting only modules
// reported by lister.
func NewResolver(registry *Registry, lister ports.ModuleLister, logger ports.Logger) *Resolver {
	return &Resolver{registry: registry, modules: lister, logger: logger}
}

// Registry returns the underlying definition table.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// CheckModule fails with AccessDenied unless module is installed.
func (r *Resolver) CheckModule(ctx context.Context, module string) error {
	if _, err := NewName(module); err != nil {
		return failure.ModuleNotAllowed(module).WithUnderlying(err)
	}
	installed, err := r.modules.ListModules(ctx)
	if err != nil {
		return fmt.Errorf("list modules: %w", err)
	}
	if !slices.Contains(installed, module) {
		return failure.ModuleNotAllowed(module)
	}
	return nil
}

// Locate checks module membership, then existence of the definition.
func (r *Resolver) Locate(ctx context.Context, key Key) (Definition, error) {
	if err := r.CheckModule(ctx, key.Module); err != nil {
		return Definition{}, err
	}
	def, ok := r.registry.Lookup(key)
	if !ok {
		if key.Kind == KindConfig {
			return Definition{}, failure.ConfigFileMissing(key.Module, key.Location())
		}
		return Definition{}, failure.ActionNotFound(key.Module, string(key.Kind), key.Action, key.Location())
	}
	return def, nil
}

// Instantiate verifies the declared identifier of def and builds it.
// The first instantiation of a key marks it loaded.
func (r *Resolver) Instantiate(ctx context.Context, def Definition) (any, error) {
	expected := def.Key.Identifier()
	if def.Identifier != expected {
		if def.Kind == KindConfig {
			return nil, failure.ConfigIdentifierMismatch(expected, def.Identifier, def.Location())
		}
		return nil, failure.ImplementationNameMismatch(expected, def.Identifier, def.Location())
	}
	if r.registry.markLoaded(def.Key) {
		r.logger.Debug(ctx, "loaded implementation",
			ports.F("identifier", def.Identifier),
			ports.F("location", def.Location()),
		)
	}
	return def.New(), nil
}

// Resolve locates and instantiates an action or cronjob.
func (r *Resolver) Resolve(ctx context.Context, module string, kind Kind, action string) (*Handle, error) {
	def, err := r.Locate(ctx, Key{Module: module, Kind: kind, Action: action})
	if err != nil {
		return nil, err
	}
	impl, err := r.Instantiate(ctx, def)
	if err != nil {
		return nil, err
	}
	act, ok := impl.(Action)
	if !ok {
		return nil, failure.ImplementationNameMismatch(def.Identifier, fmt.Sprintf("%T", impl), def.Location())
	}
	return &Handle{def: def, action: act}, nil
}

// StaticLister is a fixed module enumeration.
type StaticLister []string

// ListModules returns a copy of the list.
func (l StaticLister) ListModules(context.Context) ([]string, error) {
	return slices.Clone(l), nil
}
