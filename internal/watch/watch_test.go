package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsearch/supersearch-mcp/internal/cache"
)

func TestWatcher_ResyncsOnChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.md"), []byte("seed"), 0o644))

	store := cache.NewStore(dir, "", nil)
	_, err := store.Sync("")
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	w, err := New(store, 50*time.Millisecond, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.md"), []byte("fresh transcript"), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := store.Get("new.md")
		return ok
	}, 5*time.Second, 20*time.Millisecond, "expected watcher to index new.md")
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	store := cache.NewStore(dir, "", nil)
	_, err := store.Sync("")
	require.NoError(t, err)

	w, err := New(store, 50*time.Millisecond, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a transcript"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, store.Len())
}
