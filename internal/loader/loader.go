// Package loader materializes dataset files into engine tables on demand
// and tears them down on eviction. It is the sole mutation path for
// engine table state, which keeps catalog bookkeeping consistent with
// what actually exists in the engine.
package loader

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/quarry/internal/adapter"
	"github.com/leapstack-labs/quarry/internal/catalog"
	"github.com/leapstack-labs/quarry/pkg/core"
)

// Config holds load policy knobs.
type Config struct {
	// RecencyWindowDays bounds each load to the trailing window of rows,
	// measured against TimestampColumn. Zero or negative disables the
	// window (full history).
	RecencyWindowDays int

	// TimestampColumn is the designated timestamp column the recency
	// window and the time-ordering index apply to.
	TimestampColumn string

	// CategoryColumn is the discriminator column that gets the second
	// index, accelerating the dominant group-by-category query shape.
	CategoryColumn string

	// NumericColumns are coerced to DOUBLE with null-on-failure.
	NumericColumns []string
}

// Loader loads and unloads dataset tables through the engine adapter.
type Loader struct {
	catalog *catalog.Catalog
	engine  adapter.Adapter
	cfg     Config
	logger  *slog.Logger

	// group serializes concurrent loads of the same table: two queries
	// racing on an unloaded table share one materialization instead of
	// issuing duplicate bulk loads.
	group singleflight.Group

	now func() time.Time
}

// New creates a loader over the shared catalog and engine adapter.
func New(cat *catalog.Catalog, engine adapter.Adapter, cfg Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.TimestampColumn == "" {
		cfg.TimestampColumn = "period_start"
	}
	if cfg.CategoryColumn == "" {
		cfg.CategoryColumn = "metric_type"
	}
	if cfg.NumericColumns == nil {
		cfg.NumericColumns = []string{"value"}
	}
	return &Loader{
		catalog: cat,
		engine:  engine,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// EnsureLoaded materializes a table if it is not already loaded. Already
// loaded tables get a touch and nothing else. A load that finds zero rows
// inside the recency window is a successful no-load: the entry stays
// unloaded and no error is returned.
func (l *Loader) EnsureLoaded(ctx context.Context, name string) error {
	name = strings.ToLower(name)

	entry, ok := l.catalog.Get(name)
	if !ok {
		return &core.UnknownTableError{Table: name}
	}
	if entry.Loaded {
		l.catalog.Touch(name)
		return nil
	}

	_, err, _ := l.group.Do(name, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// finished the load while this one waited.
		if current, ok := l.catalog.Get(name); ok && current.Loaded {
			l.catalog.Touch(name)
			return nil, nil
		}
		return nil, l.load(ctx, entry)
	})
	return err
}

// load runs one materialization. The adapter owns staging cleanup; the
// loader owns catalog bookkeeping and index creation.
func (l *Loader) load(ctx context.Context, entry catalog.Entry) error {
	opts := adapter.LoadOptions{
		TimestampColumn: l.cfg.TimestampColumn,
		NumericColumns:  l.cfg.NumericColumns,
	}
	if l.cfg.RecencyWindowDays > 0 {
		opts.Since = l.now().AddDate(0, 0, -l.cfg.RecencyWindowDays)
	}

	started := l.now()
	rowCount, err := l.engine.LoadCSV(ctx, entry.Name, entry.SourcePath, opts)
	if err != nil {
		return &core.LoadError{Table: entry.Name, SourcePath: entry.SourcePath, Err: err}
	}

	if rowCount == 0 {
		l.logger.Info("no rows inside recency window, table not loaded",
			"table", entry.Name, "window_days", l.cfg.RecencyWindowDays)
		return nil
	}

	// Index failures are logged, not fatal: the table is queryable
	// without its secondary orderings, just slower.
	for _, col := range []string{l.cfg.TimestampColumn, l.cfg.CategoryColumn} {
		if err := l.engine.CreateIndex(ctx, entry.Name, col); err != nil {
			l.logger.Warn("failed to create index", "table", entry.Name, "column", col, "error", err)
		}
	}

	l.catalog.MarkLoaded(entry.Name, rowCount)
	l.logger.Info("table loaded",
		"table", entry.Name,
		"rows", rowCount,
		"duration_ms", l.now().Sub(started).Milliseconds())
	return nil
}

// Unload drops the backing table and marks the entry unloaded. Unloading
// a table that is already unloaded, or unknown, is a silent success.
func (l *Loader) Unload(ctx context.Context, name string) error {
	name = strings.ToLower(name)

	if _, ok := l.catalog.Get(name); !ok {
		return nil
	}

	if err := l.engine.DropTable(ctx, name); err != nil {
		return err
	}
	l.catalog.MarkUnloaded(name)
	l.logger.Info("table unloaded", "table", name)
	return nil
}
