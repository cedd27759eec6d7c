package rewriter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/quarry/internal/adapter"
	"github.com/leapstack-labs/quarry/internal/catalog"
	"github.com/leapstack-labs/quarry/internal/loader"
	"github.com/leapstack-labs/quarry/pkg/core"
)

// fakeEngine implements adapter.Adapter for rewriter tests.
type fakeEngine struct {
	mu          sync.Mutex
	rowsByTable map[string]int64
	loads       []string
}

func newFakeEngine(rows map[string]int64) *fakeEngine {
	if rows == nil {
		rows = make(map[string]int64)
	}
	return &fakeEngine{rowsByTable: rows}
}

func (f *fakeEngine) Connect(context.Context, adapter.Config) error { return nil }
func (f *fakeEngine) Close() error                                  { return nil }
func (f *fakeEngine) Exec(context.Context, string) error            { return nil }
func (f *fakeEngine) Query(context.Context, string) (*adapter.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeEngine) DialectName() string { return "fake" }

func (f *fakeEngine) LoadCSV(_ context.Context, tableName, _ string, _ adapter.LoadOptions) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, tableName)
	return f.rowsByTable[tableName], nil
}

func (f *fakeEngine) DropTable(context.Context, string) error           { return nil }
func (f *fakeEngine) CreateIndex(context.Context, string, string) error { return nil }
func (f *fakeEngine) TableExists(context.Context, string) (bool, error) { return false, nil }

func newFixture(t *testing.T, rows map[string]int64, views []core.ViewDefinition) (*Rewriter, *catalog.Catalog, *fakeEngine) {
	t.Helper()

	dir := t.TempDir()
	for name := range rows {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".csv"), []byte("metric_type,value\n"), 0o644))
	}

	cat := catalog.New(nil)
	require.NoError(t, cat.Discover(dir))

	eng := newFakeEngine(rows)
	ldr := loader.New(cat, eng, loader.Config{}, nil)
	return New(cat, ldr, views, nil), cat, eng
}

func TestOptimizeEnsuresReferencedTablesLoaded(t *testing.T) {
	rw, cat, eng := newFixture(t, map[string]int64{"energy_daily": 10, "water": 5}, nil)

	rewritten, err := rw.Optimize(context.Background(), "SELECT * FROM energy_daily")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM energy_daily", rewritten)

	entry, ok := cat.Get("energy_daily")
	require.True(t, ok)
	assert.True(t, entry.Loaded, "optimize must trigger ensureLoaded for referenced tables")

	// Unreferenced tables stay untouched.
	entry, _ = cat.Get("water")
	assert.False(t, entry.Loaded)
	assert.Equal(t, []string{"energy_daily"}, eng.loads)
}

func TestOptimizeUnknownTablePassesThrough(t *testing.T) {
	rw, _, _ := newFixture(t, map[string]int64{"water": 5}, nil)

	// The extractor only matches catalog names, so unknown tables are
	// simply not loaded; the engine will reject the query at execution.
	rewritten, err := rw.Optimize(context.Background(), "SELECT * FROM nosuch")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM nosuch", rewritten)
}

func TestOptimizeSubstitutesViews(t *testing.T) {
	views := []core.ViewDefinition{{
		Name:         "daily_totals",
		ExpansionSQL: "SELECT metric_type, SUM(value) AS total FROM energy_daily GROUP BY metric_type",
	}}
	rw, _, _ := newFixture(t, map[string]int64{"energy_daily": 10}, views)

	rewritten, err := rw.Optimize(context.Background(), "SELECT * FROM daily_totals WHERE total > 100")
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM (SELECT metric_type, SUM(value) AS total FROM energy_daily GROUP BY metric_type) WHERE total > 100",
		rewritten)
}

func TestOptimizeLoadsTablesReferencedThroughViews(t *testing.T) {
	views := []core.ViewDefinition{{
		Name:         "daily_totals",
		ExpansionSQL: "SELECT metric_type, SUM(value) AS total FROM energy_daily GROUP BY metric_type",
	}}
	rw, cat, _ := newFixture(t, map[string]int64{"energy_daily": 10}, views)

	_, err := rw.Optimize(context.Background(), "SELECT * FROM daily_totals")
	require.NoError(t, err)

	entry, ok := cat.Get("energy_daily")
	require.True(t, ok)
	assert.True(t, entry.Loaded, "a table referenced only through a view must still be loaded")
}

func TestOptimizeViewSubstitutionWholeWordCaseInsensitive(t *testing.T) {
	views := []core.ViewDefinition{{Name: "totals", ExpansionSQL: "SELECT 1"}}
	rw, _, _ := newFixture(t, nil, views)

	rewritten, err := rw.Optimize(context.Background(), "SELECT * FROM TOTALS")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT 1)", rewritten)

	// A longer identifier containing the view name is left alone.
	rewritten, err = rw.Optimize(context.Background(), "SELECT * FROM totals_archive")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM totals_archive", rewritten)
}

func TestOptimizeIdempotent(t *testing.T) {
	views := []core.ViewDefinition{{
		Name:         "daily_totals",
		ExpansionSQL: "SELECT metric_type, SUM(value) AS total FROM energy_daily GROUP BY metric_type",
	}}
	rw, _, _ := newFixture(t, map[string]int64{"energy_daily": 10}, views)

	once, err := rw.Optimize(context.Background(), "SELECT * FROM daily_totals JOIN daily_totals USING (metric_type)")
	require.NoError(t, err)

	twice, err := rw.Optimize(context.Background(), once)
	require.NoError(t, err)
	assert.Equal(t, once, twice, "re-optimizing must substitute nothing further")
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	views := []core.ViewDefinition{{Name: "totals", ExpansionSQL: "SELECT 1"}}
	rw, _, _ := newFixture(t, nil, views)

	input := "SELECT * FROM totals"
	_, err := rw.Optimize(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM totals", input)
}

func TestAnalyze(t *testing.T) {
	rw, cat, _ := newFixture(t, map[string]int64{"energy_daily": 0, "water": 0}, nil)

	// Mark one table loaded so the estimate has something to sum.
	cat.MarkLoaded("energy_daily", 1234)

	analysis := rw.Analyze("SELECT * FROM energy_daily")
	assert.Equal(t, []string{"energy_daily"}, analysis.Tables)
	assert.EqualValues(t, 1234, analysis.EstimatedRows)
	assert.NotEmpty(t, analysis.Suggestions, "SELECT * without WHERE should draw suggestions")

	filtered := rw.Analyze("SELECT metric_type FROM energy_daily WHERE period_start >= '2026-01-01' LIMIT 5")
	assert.Empty(t, filtered.Suggestions)
}

func TestAnalyzeDoesNotLoad(t *testing.T) {
	rw, cat, eng := newFixture(t, map[string]int64{"energy_daily": 10}, nil)

	_ = rw.Analyze("SELECT * FROM energy_daily")

	entry, _ := cat.Get("energy_daily")
	assert.False(t, entry.Loaded, "analyze is diagnostic only and must not load")
	assert.Empty(t, eng.loads)
}
