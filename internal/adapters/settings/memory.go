// Package settings provides ports.SettingsStore implementations backed by
// memory, a YAML file or Redis.
package settings

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]any
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]any)}
}

// Get returns the stored value or def.
func (s *MemoryStore) Get(_ context.Context, module, key string, def any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[module][key]; ok {
		return cloneValue(v), nil
	}
	return def, nil
}

// Set stores value; nil removes the key.
func (s *MemoryStore) Set(_ context.Context, module, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(module, key, value)
	return nil
}

// SetMany applies all values under one lock.
func (s *MemoryStore) SetMany(_ context.Context, module string, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.put(module, k, v)
	}
	return nil
}

// Update runs fn against the current value under the write lock.
func (s *MemoryStore) Update(_ context.Context, module, key string, fn func(current any) (any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(cloneValue(s.values[module][key]))
	if err != nil {
		return err
	}
	s.put(module, key, next)
	return nil
}

// Dump returns a copy of every value stored for module.
func (s *MemoryStore) Dump(module string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values[module]))
	for k, v := range s.values[module] {
		out[k] = cloneValue(v)
	}
	return out
}

func (s *MemoryStore) put(module, key string, value any) {
	if value == nil {
		delete(s.values[module], key)
		return
	}
	if s.values[module] == nil {
		s.values[module] = make(map[string]any)
	}
	s.values[module][key] = cloneValue(value)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		return append([]any(nil), t...)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

var (
	_ ports.SettingsStore   = (*MemoryStore)(nil)
	_ ports.SettingsUpdater = (*MemoryStore)(nil)
)
