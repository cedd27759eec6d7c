package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/quarry/pkg/core"
)

func writeDatasets(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("metric_type,value\n"), 0o644))
	}
	return dir
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{name: "simple", filename: "energy_daily.csv", want: "energy_daily"},
		{name: "uppercase", filename: "Energy-Daily.CSV", want: "energy_daily"},
		{name: "spaces and dots", filename: "gas usage.2024.csv", want: "gas_usage_2024"},
		{name: "leading punctuation", filename: "--water--.csv", want: "water"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalName(tt.filename))
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := writeDatasets(t, "a.csv", "b.csv", "notes.txt")

	cat := New(nil)
	require.NoError(t, cat.Discover(dir))

	assert.Equal(t, []string{"a", "b"}, cat.TableNames())
	assert.Equal(t, 2, cat.Count())

	entry, ok := cat.Get("a")
	require.True(t, ok)
	assert.False(t, entry.Loaded)
	assert.Equal(t, filepath.Join(dir, "a.csv"), entry.SourcePath)
	assert.True(t, entry.LastAccessed.IsZero())
}

func TestDiscoverUnreadableDir(t *testing.T) {
	cat := New(nil)
	err := cat.Discover(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	var discoveryErr *core.DiscoveryError
	assert.ErrorAs(t, err, &discoveryErr)
}

func TestGetCaseInsensitive(t *testing.T) {
	cat := New(nil)
	require.NoError(t, cat.Discover(writeDatasets(t, "energy_daily.csv")))

	_, ok := cat.Get("ENERGY_DAILY")
	assert.True(t, ok)

	_, ok = cat.Get("unknown_table")
	assert.False(t, ok, "unknown table must be reported absent, not empty")
}

func TestMarkLoadedAndUnloaded(t *testing.T) {
	cat := New(nil)
	require.NoError(t, cat.Discover(writeDatasets(t, "a.csv")))

	cat.MarkLoaded("a", 42)
	entry, ok := cat.Get("a")
	require.True(t, ok)
	assert.True(t, entry.Loaded)
	assert.EqualValues(t, 42, entry.RowCount)
	assert.False(t, entry.LastAccessed.IsZero(), "MarkLoaded must stamp last access")

	accessedAt := entry.LastAccessed

	cat.MarkUnloaded("a")
	entry, ok = cat.Get("a")
	require.True(t, ok)
	assert.False(t, entry.Loaded)
	assert.Equal(t, accessedAt, entry.LastAccessed, "LastAccessed must stay frozen across unload")
}

func TestTablesByLastAccess(t *testing.T) {
	cat := New(nil)
	require.NoError(t, cat.Discover(writeDatasets(t, "a.csv", "b.csv", "c.csv")))

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cat.now = func() time.Time { return clock }

	cat.MarkLoaded("a", 10)
	clock = clock.Add(10 * time.Second)
	cat.MarkLoaded("b", 10)
	clock = clock.Add(10 * time.Second)
	cat.MarkLoaded("c", 10)

	// Touch a, making it the most recent.
	clock = clock.Add(10 * time.Second)
	cat.Touch("a")

	assert.Equal(t, []string{"b", "c", "a"}, cat.TablesByLastAccess())

	// Unloaded tables drop out of the ordering.
	cat.MarkUnloaded("b")
	assert.Equal(t, []string{"c", "a"}, cat.TablesByLastAccess())
}

func TestTablesByLastAccessTieBreak(t *testing.T) {
	cat := New(nil)
	require.NoError(t, cat.Discover(writeDatasets(t, "b.csv", "a.csv")))

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cat.now = func() time.Time { return fixed }

	cat.MarkLoaded("a", 1)
	cat.MarkLoaded("b", 1)

	// Equal timestamps: discovery order (a.csv sorts after b.csv? ReadDir
	// returns lexical order, so "a" was discovered first).
	assert.Equal(t, []string{"a", "b"}, cat.TablesByLastAccess())
}

func TestLoadedTables(t *testing.T) {
	cat := New(nil)
	require.NoError(t, cat.Discover(writeDatasets(t, "a.csv", "b.csv")))

	assert.Empty(t, cat.LoadedTables())

	cat.MarkLoaded("b", 7)
	loaded := cat.LoadedTables()
	require.Len(t, loaded, 1)
	assert.Equal(t, "b", loaded[0].Name)
	assert.EqualValues(t, 7, loaded[0].RowCount)
}
