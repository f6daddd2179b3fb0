// Package cache stores derived module data, such as fetched analytics
// reports, as JSON files.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// ErrInvalidName is returned for module or entry names that cannot be used
// as a path segment.
var ErrInvalidName = errors.New("invalid cache name")

// FileCache writes one file per entry at <dir>/<module>/<name>.json.
type FileCache struct {
	mu  sync.Mutex
	dir string
}

// NewFileCache creates a cache rooted at dir.
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

// Dir returns the cache root.
func (c *FileCache) Dir() string { return c.dir }

// Put replaces the entry.
func (c *FileCache) Put(_ context.Context, module, name string, value any) error {
	path, err := c.path(module, name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry %s/%s: %w", module, name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace cache entry: %w", err)
	}
	return nil
}

// Get decodes the entry into dst and reports whether it existed.
func (c *FileCache) Get(_ context.Context, module, name string, dst any) (bool, error) {
	path, err := c.path(module, name)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	data, err := os.ReadFile(path)
	c.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read cache entry: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cache entry %s/%s: %w", module, name, err)
	}
	return true, nil
}

// Clear removes every entry of module. Clearing an empty module is not an error.
func (c *FileCache) Clear(_ context.Context, module string) error {
	if !validName.MatchString(module) {
		return fmt.Errorf("%w: %q", ErrInvalidName, module)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(filepath.Join(c.dir, module)); err != nil {
		return fmt.Errorf("clear cache for %s: %w", module, err)
	}
	return nil
}

func (c *FileCache) path(module, name string) (string, error) {
	for _, n := range []string{module, name} {
		if !validName.MatchString(n) {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, n)
		}
	}
	return filepath.Join(c.dir, module, name+".json"), nil
}

var _ ports.ReportCache = (*FileCache)(nil)
