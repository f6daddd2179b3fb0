package cache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/forkadmin/internal/adapters/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Rows  []map[string]any `json:"rows"`
	Total int              `json:"total"`
}

func TestFileCache_PutGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewFileCache(t.TempDir())

	var miss report
	found, err := c.Get(ctx, "analytics", "report", &miss)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Put(ctx, "analytics", "report", report{Total: 2, Rows: []map[string]any{{"date": "20240101"}}}))

	var got report
	found, err = c.Get(ctx, "analytics", "report", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, "20240101", got.Rows[0]["date"])

	assert.FileExists(t, filepath.Join(c.Dir(), "analytics", "report.json"))
}

func TestFileCache_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewFileCache(t.TempDir())
	require.NoError(t, c.Put(ctx, "analytics", "report", report{Total: 1}))
	require.NoError(t, c.Put(ctx, "core", "report", report{Total: 1}))

	require.NoError(t, c.Clear(ctx, "analytics"))
	require.NoError(t, c.Clear(ctx, "analytics"), "clearing twice is fine")

	var got report
	found, err := c.Get(ctx, "analytics", "report", &got)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = c.Get(ctx, "core", "report", &got)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFileCache_RejectsPathNames(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewFileCache(t.TempDir())

	assert.ErrorIs(t, c.Put(ctx, "../etc", "x", 1), cache.ErrInvalidName)
	assert.ErrorIs(t, c.Put(ctx, "analytics", "a/b", 1), cache.ErrInvalidName)
	assert.ErrorIs(t, c.Clear(ctx, ""), cache.ErrInvalidName)
}

func TestFileCache_CorruptEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "analytics"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "analytics", "report.json"), []byte("{"), 0o644))

	var got report
	_, err := cache.NewFileCache(dir).Get(context.Background(), "analytics", "report", &got)
	assert.ErrorContains(t, err, "decode cache entry")
}
