package ports

import (
	"context"
	"errors"
)

// ErrSettingsUnavailable is returned by stores whose backend cannot be reached.
var ErrSettingsUnavailable = errors.New("settings store unavailable")

// SettingsStore persists module-scoped settings.
//
// Values are strings, string slices, JSON-compatible maps or nil. Storing
// nil removes the key. Get returns def when the key is absent.
type SettingsStore interface {
	Get(ctx context.Context, module, key string, def any) (any, error)
	Set(ctx context.Context, module, key string, value any) error

	// SetMany writes all values for module together or none of them.
	SetMany(ctx context.Context, module string, values map[string]any) error
}

// SettingsUpdater is implemented by stores that can read-modify-write one
// key atomically. fn receives the current value, or nil when absent, and
// returns the value to store; returning nil removes the key.
type SettingsUpdater interface {
	Update(ctx context.Context, module, key string, fn func(current any) (any, error)) error
}
