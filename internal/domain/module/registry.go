// Package module resolves module artifacts (actions, cronjobs, configs)
// through a lookup table populated at startup.
package module

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateDefinition is returned when a key is registered twice.
var ErrDuplicateDefinition = errors.New("definition already registered")

// Definition binds a key to the identifier its implementation declares
// and a factory producing it.
type Definition struct {
	Key
	Identifier string
	New        func() any
}

// Registry is the process-wide definition table. It also tracks which
// definitions have been loaded.
type Registry struct {
	mu     sync.RWMutex
	defs   map[Key]Definition
	loaded map[Key]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:   make(map[Key]Definition),
		loaded: make(map[Key]bool),
	}
}

// Register adds def. Keys must be unique.
func (r *Registry) Register(def Definition) error {
	if def.New == nil {
		return fmt.Errorf("register %s: nil factory", def.Key)
	}
	if _, err := NewName(def.Module); err != nil {
		return fmt.Errorf("register %s: module: %w", def.Key, err)
	}
	if def.Kind != KindConfig {
		if _, err := NewName(def.Action); err != nil {
			return fmt.Errorf("register %s: action: %w", def.Key, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Key]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateDefinition, def.Kind, def.Key)
	}
	r.defs[def.Key] = def
	return nil
}

// MustRegister is Register that panics; for static module tables.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// RegisterAction registers an interactive action.
func (r *Registry) RegisterAction(module, action, identifier string, fn func() Action) error {
	return r.Register(Definition{
		Key:        Key{Module: module, Kind: KindAction, Action: action},
		Identifier: identifier,
		New:        func() any { return fn() },
	})
}

// RegisterCronjob registers an unattended action.
func (r *Registry) RegisterCronjob(module, action, identifier string, fn func() Action) error {
	return r.Register(Definition{
		Key:        Key{Module: module, Kind: KindCronjob, Action: action},
		Identifier: identifier,
		New:        func() any { return fn() },
	})
}

// Lookup returns the definition registered under key.
func (r *Registry) Lookup(key Key) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[key]
	return def, ok
}

// markLoaded records key as loaded and reports whether this was the first load.
func (r *Registry) markLoaded(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded[key] {
		return false
	}
	r.loaded[key] = true
	return true
}

// Loaded reports whether key has been loaded in this process.
func (r *Registry) Loaded(key Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded[key]
}

// Modules returns every module with at least one definition, sorted.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	for k := range r.defs {
		seen[k.Module] = true
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Keys returns the registered keys of kind for module, sorted by action.
func (r *Registry) Keys(module string, kind Kind) []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Key
	for k := range r.defs {
		if k.Module == module && k.Kind == kind {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}
