// Package engine wires the data access pipeline together: catalog
// discovery, lazy table loading, memory-pressure eviction, result
// caching, and query rewriting. An inbound query flows Rewriter →
// Cache → adapter execution; the memory manager runs independently on
// its own timer.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/leapstack-labs/quarry/internal/adapter"
	"github.com/leapstack-labs/quarry/internal/cache"
	"github.com/leapstack-labs/quarry/internal/catalog"
	"github.com/leapstack-labs/quarry/internal/config"
	"github.com/leapstack-labs/quarry/internal/loader"
	"github.com/leapstack-labs/quarry/internal/memory"
	"github.com/leapstack-labs/quarry/internal/rewriter"
	"github.com/leapstack-labs/quarry/internal/state"
	"github.com/leapstack-labs/quarry/pkg/core"
)

// Engine orchestrates the lazy-loading data access layer.
type Engine struct {
	// Engine adapter (lazy connected)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	// Structured logger
	logger *slog.Logger

	catalog  *catalog.Catalog
	loader   *loader.Loader
	cache    *cache.QueryCache
	rewriter *rewriter.Rewriter
	memory   *memory.Manager
	history  *state.HistoryStore

	dataDir     string
	watch       bool
	watchCancel context.CancelFunc
}

// New creates an engine from the loaded configuration. The dataset
// directory is scanned once here; an unreadable directory is fatal.
// The engine adapter connection is deferred until the first query.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine", "data_dir", cfg.DataDir, "engine_type", cfg.EngineType)

	cat := catalog.New(logger)
	if err := cat.Discover(cfg.DataDir); err != nil {
		return nil, err
	}

	dbConfig := adapter.Config{Type: cfg.EngineType, Path: cfg.DatabasePath}
	db, err := adapter.New(dbConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine adapter: %w", err)
	}

	ldr := loader.New(cat, db, loader.Config{
		RecencyWindowDays: cfg.RecencyWindowDays,
		TimestampColumn:   cfg.TimestampColumn,
		CategoryColumn:    cfg.CategoryColumn,
	}, logger)

	qc := cache.New(cache.Config{
		Capacity: cfg.CacheCapacity,
		Classify: cache.NewClassifier(cache.TTLs{
			Default:   cfg.CacheTTLDefault,
			Aggregate: cfg.CacheTTLAggregate,
			Realtime:  cfg.CacheTTLRealtime,
		}),
	}, logger)

	rw := rewriter.New(cat, ldr, viewsFromConfig(cfg.Views), logger)

	mm := memory.New(cat, ldr, memory.Config{
		LimitBytes:    cfg.MemoryLimitBytes(),
		CheckInterval: cfg.MemoryCheckInterval,
	}, logger)

	var history *state.HistoryStore
	if cfg.HistoryPath != "" {
		history = state.NewHistoryStore(logger)
		if err := history.Open(cfg.HistoryPath); err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		if err := history.InitSchema(); err != nil {
			_ = history.Close()
			return nil, fmt.Errorf("failed to initialize history schema: %w", err)
		}
	}

	return &Engine{
		db:       db,
		dbConfig: dbConfig,
		logger:   logger,
		catalog:  cat,
		loader:   ldr,
		cache:    qc,
		rewriter: rw,
		memory:   mm,
		history:  history,
		dataDir:  cfg.DataDir,
		watch:    cfg.Watch,
	}, nil
}

// viewsFromConfig converts the name→SQL map into sorted definitions so
// substitution order is deterministic.
func viewsFromConfig(views map[string]string) []core.ViewDefinition {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]core.ViewDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, core.ViewDefinition{Name: name, ExpansionSQL: views[name]})
	}
	return defs
}

// ensureDBConnected lazily connects to the engine.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to engine", "adapter_type", e.dbConfig.Type)

	if err := e.db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to engine: %w", err)
	}
	e.dbConnected = true

	return nil
}

// Start launches the background memory manager and, when watch mode is
// configured, the dataset directory watcher.
func (e *Engine) Start() {
	e.memory.Start()

	if e.watch && e.watchCancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		e.watchCancel = cancel
		go func() {
			if err := e.catalog.Watch(ctx, e.dataDir); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Warn("dataset watcher stopped", "error", err)
			}
		}()
	}
}

// Close stops the memory manager and watcher and releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	e.memory.Stop()
	if e.watchCancel != nil {
		e.watchCancel()
		e.watchCancel = nil
	}

	var errs []error
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// Query runs one query through the full pipeline: rewrite (which loads
// referenced tables), cache lookup, execution on miss, caching of the
// result. The returned result is safe for the caller to mutate.
func (e *Engine) Query(ctx context.Context, query string, params map[string]any) (*core.QueryResult, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	rewritten, err := e.rewriter.Optimize(ctx, query)
	if err != nil {
		return nil, err
	}

	result, hit, err := e.cache.GetOrExecute(ctx, rewritten, params, func(ctx context.Context) (*core.QueryResult, error) {
		return e.execute(ctx, rewritten, query, params)
	})
	if err != nil {
		return nil, err
	}

	e.recordHistory(query, params, result, hit)
	return result, nil
}

// execute binds parameters, runs the rewritten query on the engine and
// materializes the full result set. originalQuery is carried for error
// reporting only.
func (e *Engine) execute(ctx context.Context, rewritten, originalQuery string, params map[string]any) (*core.QueryResult, error) {
	bound, err := BindParams(rewritten, params)
	if err != nil {
		return nil, &core.ExecutionError{Query: originalQuery, Err: err}
	}

	started := time.Now()
	rows, err := e.db.Query(ctx, bound)
	if err != nil {
		return nil, &core.ExecutionError{Query: originalQuery, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &core.ExecutionError{Query: originalQuery, Err: err}
	}

	var resultRows [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &core.ExecutionError{Query: originalQuery, Err: err}
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.ExecutionError{Query: originalQuery, Err: err}
	}

	return &core.QueryResult{
		Columns:         columns,
		Rows:            resultRows,
		RowCount:        len(resultRows),
		ExecutionTimeMs: time.Since(started).Milliseconds(),
	}, nil
}

// recordHistory appends to the query log, best effort.
func (e *Engine) recordHistory(query string, params map[string]any, result *core.QueryResult, hit bool) {
	if e.history == nil {
		return
	}

	var encodedParams string
	if len(params) > 0 {
		if encoded, err := json.Marshal(params); err == nil {
			encodedParams = string(encoded)
		}
	}

	rec := state.QueryRecord{
		Query:      query,
		Params:     encodedParams,
		DurationMs: result.ExecutionTimeMs,
		RowCount:   result.RowCount,
		CacheHit:   hit,
	}
	if err := e.history.RecordQuery(rec); err != nil {
		e.logger.Warn("failed to record query history", "error", err)
	}
}

// Analyze reports referenced tables, a row-count estimate and heuristic
// suggestions for a query without executing it.
func (e *Engine) Analyze(query string) rewriter.Analysis {
	return e.rewriter.Analyze(query)
}

// Tables returns the catalog entries in discovery order.
func (e *Engine) Tables() []catalog.Entry {
	return e.catalog.AllTables()
}

// ForceEvict evicts the count least-recently-accessed loaded tables.
func (e *Engine) ForceEvict(ctx context.Context, count int) int {
	return e.memory.ForceEvict(ctx, count)
}

// RecentQueries returns the query history, newest first. Returns nil
// when the history log is disabled.
func (e *Engine) RecentQueries(limit int) ([]state.QueryRecord, error) {
	if e.history == nil {
		return nil, nil
	}
	return e.history.RecentQueries(limit)
}

// Catalog exposes the shared catalog for diagnostics.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}
