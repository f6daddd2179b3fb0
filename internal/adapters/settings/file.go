package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
	"gopkg.in/yaml.v3"
)

// ErrSettingsCorrupt is returned when the settings file cannot be parsed.
var ErrSettingsCorrupt = errors.New("settings file is corrupt")

// FileStore keeps all settings in one YAML document:
//
//	analytics:
//	  client_id: abc
//	core:
//	  cronjobs: [core.ping]
//
// The file is re-read on every call and rewritten atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Get returns the stored value or def.
func (s *FileStore) Get(_ context.Context, module, key string, def any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if v, ok := doc[module][key]; ok && v != nil {
		return v, nil
	}
	return def, nil
}

// Set stores value; nil removes the key.
func (s *FileStore) Set(ctx context.Context, module, key string, value any) error {
	return s.SetMany(ctx, module, map[string]any{key: value})
}

// SetMany applies values with a single file replacement.
func (s *FileStore) SetMany(_ context.Context, module string, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	return s.apply(doc, module, values)
}

// Update reads, modifies and rewrites key while holding the store lock.
func (s *FileStore) Update(_ context.Context, module, key string, fn func(current any) (any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	next, err := fn(doc[module][key])
	if err != nil {
		return err
	}
	return s.apply(doc, module, map[string]any{key: next})
}

func (s *FileStore) apply(doc map[string]map[string]any, module string, values map[string]any) error {
	section := doc[module]
	if section == nil {
		section = make(map[string]any)
		doc[module] = section
	}
	for k, v := range values {
		if v == nil {
			delete(section, k)
			continue
		}
		section[k] = v
	}
	if len(section) == 0 {
		delete(doc, module)
	}
	return s.save(doc)
}

func (s *FileStore) load() (map[string]map[string]any, error) {
	doc := make(map[string]map[string]any)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSettingsCorrupt, err)
	}
	if doc == nil {
		doc = make(map[string]map[string]any)
	}
	return doc, nil
}

func (s *FileStore) save(doc map[string]map[string]any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

var (
	_ ports.SettingsStore   = (*FileStore)(nil)
	_ ports.SettingsUpdater = (*FileStore)(nil)
)
