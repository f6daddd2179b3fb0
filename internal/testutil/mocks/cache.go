package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// ReportCache is an in-memory ports.ReportCache that counts clears.
type ReportCache struct {
	mu      sync.Mutex
	entries map[string]map[string][]byte

	Cleared  []string
	ClearErr error
}

// NewReportCache creates an empty cache.
func NewReportCache() *ReportCache {
	return &ReportCache{entries: make(map[string]map[string][]byte)}
}

func (c *ReportCache) Put(_ context.Context, module, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[module] == nil {
		c.entries[module] = make(map[string][]byte)
	}
	c.entries[module][name] = data
	return nil
}

func (c *ReportCache) Get(_ context.Context, module, name string, dst any) (bool, error) {
	c.mu.Lock()
	data, ok := c.entries[module][name]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *ReportCache) Clear(_ context.Context, module string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Cleared = append(c.Cleared, module)
	if c.ClearErr != nil {
		return c.ClearErr
	}
	delete(c.entries, module)
	return nil
}

// Len returns the number of entries cached for module.
func (c *ReportCache) Len(module string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries[module])
}

var _ ports.ReportCache = (*ReportCache)(nil)
