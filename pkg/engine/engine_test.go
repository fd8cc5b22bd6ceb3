package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *ScanEngine {
	t.Helper()
	e := New(Options{
		StateDir:         t.TempDir(),
		MemoryMaxEntries: 30,
		MemoryMaxBytes:   200 << 20,
		DiskMaxBytes:     500 << 20,
	})
	require.NoError(t, e.Open())
	t.Cleanup(e.Close)
	return e
}

func TestScanEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t)

	result, err := e.Scan(context.Background(), root, false)
	require.NoError(t, err)

	assert.Empty(t, result.Items)
	assert.Equal(t, int64(0), result.TotalSize)
	assert.Equal(t, "0 B", result.TotalSizeFormatted)
}

func TestScanTwoFilesAtRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), make([]byte, 1500), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.bin"), make([]byte, 500), 0o644))

	e := newTestEngine(t)
	result, err := e.Scan(context.Background(), root, false)
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, "a.bin", result.Items[0].Path)
	assert.Equal(t, "b.bin", result.Items[1].Path)
	assert.Equal(t, int64(2000), result.TotalSize)
	assert.Equal(t, "1.95 KB", result.TotalSizeFormatted)
}

func TestScanInvalidInput(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Scan(context.Background(), "   ", false)
	require.Error(t, err)
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, InvalidInput, engErr.Kind)
}

func TestScanNotAccessible(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Scan(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), false)
	require.Error(t, err)
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, NotAccessible, engErr.Kind)
}

func TestScanNotADirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	e := newTestEngine(t)
	_, err := e.Scan(context.Background(), file, false)
	require.Error(t, err)
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, NotADirectory, engErr.Kind)
}

func TestScanCacheHitThenForceRefresh(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), make([]byte, 100), 0o644))

	e := newTestEngine(t)

	first, err := e.Scan(context.Background(), root, false)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := e.Scan(context.Background(), root, false)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, "memory", second.CacheSource)
	assert.Equal(t, float64(0), second.ScanTimeSeconds)
	assert.Equal(t, first.Items, second.Items)

	third, err := e.Scan(context.Background(), root, true)
	require.NoError(t, err)
	assert.False(t, third.CacheHit, "force_refresh must bypass both cache tiers")
}

func TestForceRefreshInvalidatesMemoryCachedDescendants(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "subdir")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.bin"), make([]byte, 10), 0o644))

	e := newTestEngine(t)

	// Warm the memory tier for the subdirectory directly.
	first, err := e.Scan(context.Background(), sub, false)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	// Force-refreshing the parent must invalidate the subdirectory's memory
	// entry too, not just the parent's own key.
	_, err = e.Scan(context.Background(), root, true)
	require.NoError(t, err)

	second, err := e.Scan(context.Background(), sub, false)
	require.NoError(t, err)
	assert.False(t, second.CacheHit, "a stale memory-cached descendant must not be served after an ancestor force refresh")
}

func TestScanColdMemoryFallsBackToDisk(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), make([]byte, 100), 0o644))

	stateDir := t.TempDir()
	e1 := New(Options{StateDir: stateDir})
	require.NoError(t, e1.Open())

	_, err := e1.Scan(context.Background(), root, false)
	require.NoError(t, err)
	e1.Close()

	// Fresh engine, same state dir: memory tier is cold, disk tier is not.
	e2 := New(Options{StateDir: stateDir})
	require.NoError(t, e2.Open())
	defer e2.Close()

	result, err := e2.Scan(context.Background(), root, false)
	require.NoError(t, err)
	assert.True(t, result.CacheHit)
	assert.Equal(t, "disk", result.CacheSource)
}

func TestScanBatchDropsFailures(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), make([]byte, 10), 0o644))

	e := newTestEngine(t)
	results := e.ScanBatch(context.Background(), []string{root, "/definitely/not/a/real/path"}, false)

	assert.Len(t, results, 1)
	assert.Equal(t, root, results[0].Path)
}

func TestDiskCacheStatsAndClear(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), make([]byte, 10), 0o644))

	e := newTestEngine(t)
	_, err := e.Scan(context.Background(), root, false)
	require.NoError(t, err)

	stats, err := e.DiskCacheStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EntryCount)

	require.NoError(t, e.ClearDiskCache())
	stats, err = e.DiskCacheStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EntryCount)
}
