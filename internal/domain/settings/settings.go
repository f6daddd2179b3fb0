// Package settings holds typed helpers over ports.SettingsStore.
package settings

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// String reads key as a string; absent values read as "".
func String(ctx context.Context, store ports.SettingsStore, module, key string) (string, error) {
	v, err := store.Get(ctx, module, key, nil)
	if err != nil {
		return "", fmt.Errorf("get %s.%s: %w", module, key, err)
	}
	return AsString(v), nil
}

// Strings reads key as a string list; absent values read as nil.
func Strings(ctx context.Context, store ports.SettingsStore, module, key string) ([]string, error) {
	v, err := store.Get(ctx, module, key, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s.%s: %w", module, key, err)
	}
	return AsStrings(v), nil
}

// Snapshot reads keys for module into a map. Absent keys map to "".
func Snapshot(ctx context.Context, store ports.SettingsStore, module string, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := String(ctx, store, module, key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// appendMu serializes AppendUnique for stores without atomic updates.
var appendMu sync.Mutex

// AppendUnique adds value to the string list under key unless present,
// and reports whether the list changed. Stores implementing
// ports.SettingsUpdater apply it atomically; other stores are serialized
// within the process.
func AppendUnique(ctx context.Context, store ports.SettingsStore, module, key, value string) (bool, error) {
	if u, ok := store.(ports.SettingsUpdater); ok {
		changed := false
		err := u.Update(ctx, module, key, func(current any) (any, error) {
			list := AsStrings(current)
			if slices.Contains(list, value) {
				return current, nil
			}
			changed = true
			return append(list, value), nil
		})
		if err != nil {
			return false, fmt.Errorf("update %s.%s: %w", module, key, err)
		}
		return changed, nil
	}

	appendMu.Lock()
	defer appendMu.Unlock()
	list, err := Strings(ctx, store, module, key)
	if err != nil {
		return false, err
	}
	if slices.Contains(list, value) {
		return false, nil
	}
	list = append(list, value)
	if err := store.Set(ctx, module, key, list); err != nil {
		return false, fmt.Errorf("set %s.%s: %w", module, key, err)
	}
	return true, nil
}

// AsString converts a stored value to a string.
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// AsStrings converts a stored value to a deduplicated string list,
// keeping first occurrences in order.
func AsStrings(v any) []string {
	var raw []string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		raw = []string{t}
	case []string:
		raw = t
	case []any:
		raw = make([]string, 0, len(t))
		for _, item := range t {
			raw = append(raw, AsString(item))
		}
	default:
		raw = []string{fmt.Sprint(t)}
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
