package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, dir, name, content string) string {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func TestStore_Sync(t *testing.T) {
	t.Run("indexes new files", func(t *testing.T) {
		dir := t.TempDir()
		writeTranscript(t, dir, "AAPL_2024Q1.md", "# Page 1\nrevenue up\n# Page 2\nmargins flat")
		writeTranscript(t, dir, "MSFT_2024Q2.md", "cloud growth")

		store := NewStore(dir, "", nil)
		result, err := store.Sync("")
		require.NoError(t, err)

		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 2, result.NewFiles)
		assert.Equal(t, 0, result.UpdatedFiles)
		assert.Equal(t, 2, result.TotalCached)

		rec, ok := store.Get("AAPL_2024Q1.md")
		require.True(t, ok)
		assert.Equal(t, "AAPL_2024Q1.md", rec.Filename)
		assert.Equal(t, 2, rec.Pages)
		assert.Equal(t, rec.CharCount/4, rec.EstimatedTokens)
	})

	t.Run("second sync with no changes is idempotent", func(t *testing.T) {
		dir := t.TempDir()
		writeTranscript(t, dir, "note.md", "body")

		store := NewStore(dir, "", nil)
		_, err := store.Sync("")
		require.NoError(t, err)
		cacheBytes, err := os.ReadFile(filepath.Join(dir, DefaultCacheFile))
		require.NoError(t, err)

		result, err := store.Sync("")
		require.NoError(t, err)
		assert.Equal(t, 0, result.NewFiles)
		assert.Equal(t, 0, result.UpdatedFiles)
		assert.Equal(t, 1, result.Processed)

		again, err := os.ReadFile(filepath.Join(dir, DefaultCacheFile))
		require.NoError(t, err)
		assert.Equal(t, cacheBytes, again)
	})

	t.Run("modified files are re-indexed", func(t *testing.T) {
		dir := t.TempDir()
		full := writeTranscript(t, dir, "note.md", "short")

		store := NewStore(dir, "", nil)
		_, err := store.Sync("")
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(full, []byte("much longer content than before"), 0o644))
		// Force a distinct mtime in case the writes land in the same tick.
		future := time.Now().Add(2 * time.Second)
		require.NoError(t, os.Chtimes(full, future, future))

		result, err := store.Sync("")
		require.NoError(t, err)
		assert.Equal(t, 0, result.NewFiles)
		assert.Equal(t, 1, result.UpdatedFiles)

		rec, _ := store.Get("note.md")
		assert.Equal(t, len("much longer content than before"), rec.CharCount)
	})

	t.Run("counts reflect cleaned content", func(t *testing.T) {
		dir := t.TempDir()
		writeTranscript(t, dir, "messy.md", "  a   b\r\n\r\n\r\n\r\nc  ")

		store := NewStore(dir, "", nil)
		_, err := store.Sync("")
		require.NoError(t, err)

		rec, _ := store.Get("messy.md")
		assert.Equal(t, len("a b\n\nc"), rec.CharCount)
	})

	t.Run("scans recursively", func(t *testing.T) {
		dir := t.TempDir()
		writeTranscript(t, dir, "2024/Q1/AAPL.md", "deep")

		store := NewStore(dir, "", nil)
		result, err := store.Sync("")
		require.NoError(t, err)
		assert.Equal(t, 1, result.NewFiles)
		_, ok := store.Get("2024/Q1/AAPL.md")
		assert.True(t, ok)
	})

	t.Run("prunes records for deleted files", func(t *testing.T) {
		dir := t.TempDir()
		full := writeTranscript(t, dir, "gone.md", "body")
		writeTranscript(t, dir, "stays.md", "body")

		store := NewStore(dir, "", nil)
		_, err := store.Sync("")
		require.NoError(t, err)

		require.NoError(t, os.Remove(full))
		result, err := store.Sync("")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Removed)
		assert.Equal(t, 1, result.TotalCached)
		_, ok := store.Get("gone.md")
		assert.False(t, ok)
	})

	t.Run("missing directory is an error and leaves the cache untouched", func(t *testing.T) {
		dir := t.TempDir()
		writeTranscript(t, dir, "note.md", "body")
		store := NewStore(dir, "", nil)
		_, err := store.Sync("")
		require.NoError(t, err)

		_, err = store.Sync(filepath.Join(dir, "does-not-exist"))
		assert.ErrorIs(t, err, ErrDirectoryNotFound)
	})

	t.Run("malformed cache file triggers a full re-index", func(t *testing.T) {
		dir := t.TempDir()
		writeTranscript(t, dir, "note.md", "body")
		require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultCacheFile), []byte("{not json"), 0o644))

		store := NewStore(dir, "", nil)
		result, err := store.Sync("")
		require.NoError(t, err)
		assert.Equal(t, 1, result.NewFiles)
	})

	t.Run("persisted cache is loaded by a fresh store", func(t *testing.T) {
		dir := t.TempDir()
		writeTranscript(t, dir, "note.md", "body")

		first := NewStore(dir, "", nil)
		_, err := first.Sync("")
		require.NoError(t, err)

		second := NewStore(dir, "", nil)
		result, err := second.Sync("")
		require.NoError(t, err)
		assert.Equal(t, 0, result.NewFiles)
		assert.Equal(t, 1, result.TotalCached)
	})
}

func TestStore_ReadClean(t *testing.T) {
	dir := t.TempDir()
	writeTranscript(t, dir, "note.md", "a  b\r\nc")
	store := NewStore(dir, "", nil)
	_, err := store.Sync("")
	require.NoError(t, err)

	t.Run("returns cleaned content", func(t *testing.T) {
		content, err := store.ReadClean("note.md")
		require.NoError(t, err)
		assert.Equal(t, "a b\nc", content)
	})

	t.Run("uncached path is not found", func(t *testing.T) {
		_, err := store.ReadClean("missing.md")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cached path deleted from disk is not found", func(t *testing.T) {
		writeTranscript(t, dir, "fleeting.md", "x")
		_, err := store.Sync("")
		require.NoError(t, err)
		require.NoError(t, os.Remove(filepath.Join(dir, "fleeting.md")))

		_, err = store.ReadClean("fleeting.md")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_Resolve(t *testing.T) {
	store := NewStore(t.TempDir(), "", nil)

	_, err := store.Resolve("../outside.md")
	assert.Error(t, err)

	full, err := store.Resolve("sub/note.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "sub", "note.md"), full)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 300, EstimateTokens(1200))
	assert.Equal(t, 0, EstimateTokens(3))
}
