// Package memory watches the estimated footprint of loaded tables and
// evicts least-recently-used ones when the configured ceiling is
// approached. Estimates are a documented approximation; the goal is a
// predictable ceiling, not exact accounting.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/quarry/internal/catalog"
	"github.com/leapstack-labs/quarry/internal/loader"
)

// DefaultBytesPerRow is the per-row memory multiplier used to estimate a
// loaded table's footprint. It approximates a row of the canonical
// dataset schema (two timestamps, two short strings, a unit and a
// double) plus engine overhead.
const DefaultBytesPerRow = 256

// Watermark fractions of the configured limit: eviction starts above
// high water and stops below low water.
const (
	highWaterFraction = 0.8
	lowWaterFraction  = 0.6
)

// Config holds memory manager settings.
type Config struct {
	// LimitBytes is the configured memory ceiling for loaded tables.
	LimitBytes int64

	// CheckInterval is how often the manager re-estimates usage.
	CheckInterval time.Duration

	// BytesPerRow overrides DefaultBytesPerRow when positive.
	BytesPerRow int64
}

// Manager periodically estimates memory used by loaded tables and drives
// eviction through the loader. It never blocks or cancels in-flight
// queries; a query already executing against a table being evicted may
// observe it disappear, which is an accepted race.
type Manager struct {
	catalog *catalog.Catalog
	loader  *loader.Loader
	cfg     Config
	logger  *slog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	started bool
}

// New creates a memory manager. Start must be called to begin the
// periodic checks.
func New(cat *catalog.Catalog, ldr *loader.Loader, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.BytesPerRow <= 0 {
		cfg.BytesPerRow = DefaultBytesPerRow
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	return &Manager{
		catalog: cat,
		loader:  ldr,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start launches the periodic check loop. Starting an already started
// manager is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true
	m.stopCh = make(chan struct{})

	go m.run(m.stopCh)
	m.logger.Info("memory manager started",
		"limit_bytes", m.cfg.LimitBytes, "interval", m.cfg.CheckInterval)
}

// Stop halts the check loop. Stopping a stopped manager is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}
	m.started = false
	close(m.stopCh)
	m.logger.Info("memory manager stopped")
}

func (m *Manager) run(stopCh chan struct{}) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.CheckOnce(context.Background())
		}
	}
}

// EstimateBytes returns the estimated footprint of all loaded tables:
// row count times the per-row multiplier, summed.
func (m *Manager) EstimateBytes() int64 {
	var total int64
	for _, e := range m.catalog.LoadedTables() {
		total += e.RowCount * m.cfg.BytesPerRow
	}
	return total
}

// CheckOnce runs a single estimate-and-evict pass. Exported so operators
// and tests can trigger a pass outside the timer.
func (m *Manager) CheckOnce(ctx context.Context) {
	estimate := m.EstimateBytes()
	highWater := int64(float64(m.cfg.LimitBytes) * highWaterFraction)
	if estimate <= highWater {
		return
	}

	lowWater := int64(float64(m.cfg.LimitBytes) * lowWaterFraction)
	m.logger.Info("memory pressure detected",
		"estimate_bytes", estimate, "high_water", highWater, "low_water", lowWater)

	for _, name := range m.catalog.TablesByLastAccess() {
		entry, ok := m.catalog.Get(name)
		if !ok || !entry.Loaded {
			continue
		}

		if err := m.loader.Unload(ctx, name); err != nil {
			// Eviction is best-effort: log and try the next candidate.
			m.logger.Error("failed to evict table", "table", name, "error", err)
			continue
		}

		estimate -= entry.RowCount * m.cfg.BytesPerRow
		m.logger.Info("evicted table", "table", name,
			"freed_bytes", entry.RowCount*m.cfg.BytesPerRow, "estimate_bytes", estimate)

		if estimate < lowWater {
			return
		}
	}
}

// ForceEvict unconditionally evicts the count least-recently-accessed
// loaded tables, for operator-triggered memory relief. Returns the
// number of tables actually evicted.
func (m *Manager) ForceEvict(ctx context.Context, count int) int {
	evicted := 0
	for _, name := range m.catalog.TablesByLastAccess() {
		if evicted >= count {
			break
		}
		if err := m.loader.Unload(ctx, name); err != nil {
			m.logger.Error("failed to evict table", "table", name, "error", err)
			continue
		}
		evicted++
	}
	return evicted
}
