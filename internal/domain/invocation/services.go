package invocation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// Services is a name-keyed registry of collaborators. The first
// registration under a name wins; later ones are ignored.
type Services struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewServices creates an empty registry.
func NewServices() *Services {
	return &Services{entries: make(map[string]any)}
}

// Register stores svc under name and reports whether it was stored.
func (s *Services) Register(name string, svc any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[name]; exists {
		return false
	}
	s.entries[name] = svc
	return true
}

// Get returns the service registered under name.
func (s *Services) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.entries[name]
	return svc, ok
}

// Names returns the registered names in sorted order.
func (s *Services) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup fetches a service and asserts its type.
func Lookup[T any](s *Services, name string) (T, error) {
	var zero T
	svc, ok := s.Get(name)
	if !ok {
		return zero, fmt.Errorf("service %q is not registered", name)
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("service %q has type %T", name, svc)
	}
	return typed, nil
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...ports.Field) {}
func (nopLogger) Info(context.Context, string, ...ports.Field)  {}
func (nopLogger) Warn(context.Context, string, ...ports.Field)  {}
func (nopLogger) Error(context.Context, string, ...ports.Field) {}
func (n nopLogger) With(...ports.Field) ports.Logger            { return n }
func (nopLogger) Level() ports.Level                            { return ports.LevelError }
func (nopLogger) SetLevel(ports.Level)                          {}
