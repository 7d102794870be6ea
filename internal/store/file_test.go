package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, b.Put(ctx, "sample", payload{Name: "a", Count: 3}))

	var got payload
	require.NoError(t, b.Get(ctx, "sample", &got))
	assert.Equal(t, payload{Name: "a", Count: 3}, got)
}

func TestFileBackend_GetMissingKey(t *testing.T) {
	b := NewFileBackend(t.TempDir())

	var v map[string]any
	err := b.Get(context.Background(), "absent", &v)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileBackend_PutCreatesBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "nested")
	b := NewFileBackend(dir)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", map[string]string{"x": "y"}))
	assert.True(t, b.Exists(ctx, "k"))

	// The value is plain JSON on disk.
	data, err := os.ReadFile(filepath.Join(dir, "k.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"x": "y"`)
}

func TestFileBackend_DeleteIsIdempotent(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", 1))
	require.NoError(t, b.Delete(ctx, "k"))
	assert.False(t, b.Exists(ctx, "k"))
	require.NoError(t, b.Delete(ctx, "k"))
}

func TestFileBackend_NoPartialWritesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(dir)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", []int{1, 2, 3}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
