// Package catalog maintains the mapping from logical dataset names to
// source files and load state. It is the single owner of load-state
// bookkeeping: the loader and memory manager mutate entries only through
// catalog methods, never by writing fields directly.
package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/quarry/pkg/core"
)

// Entry describes one discoverable dataset.
type Entry struct {
	// Name is the canonical lowercase table name, the unique key.
	Name string

	// SourcePath is the absolute path of the backing dataset file.
	SourcePath string

	// Loaded reports whether the backing table currently exists in the
	// engine. When true, RowCount is meaningful.
	Loaded bool

	// RowCount is the number of rows materialized at load time.
	RowCount int64

	// LastAccessed is the time of the last successful reference. The
	// zero value means the table has never been touched. Frozen at its
	// last value across unload.
	LastAccessed time.Time
}

// Catalog holds the dataset entries behind a single lock. All components
// share one instance by reference; there is no ambient registry.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	// order preserves discovery order for deterministic LRU tie-breaks.
	order  []string
	logger *slog.Logger

	now func() time.Time
}

// New creates an empty catalog. Call Discover to populate it.
func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Catalog{
		entries: make(map[string]*Entry),
		logger:  logger,
		now:     time.Now,
	}
}

// identRe strips everything that cannot appear in an engine identifier.
var identRe = regexp.MustCompile(`[^a-z0-9_]+`)

// CanonicalName derives the canonical lowercase table name for a dataset
// filename: extension stripped, lowercased, runs of non-identifier
// characters collapsed to a single underscore.
func CanonicalName(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name = strings.ToLower(name)
	name = identRe.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// Discover scans the dataset directory once and records one entry per
// CSV file. An unreadable directory is fatal and surfaced as a
// DiscoveryError; the caller is expected to abort startup.
func (c *Catalog) Discover(dir string) error {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return &core.DiscoveryError{Dir: dir, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".csv") {
			continue
		}
		name := CanonicalName(de.Name())
		if name == "" {
			continue
		}
		c.register(name, filepath.Join(dir, de.Name()))
	}

	c.logger.Info("catalog discovered", "dir", dir, "datasets", len(c.order))
	return nil
}

// register adds an entry if the name is not already known.
// Caller must hold c.mu.
func (c *Catalog) register(name, sourcePath string) {
	if _, ok := c.entries[name]; ok {
		return
	}
	c.entries[name] = &Entry{Name: name, SourcePath: sourcePath}
	c.order = append(c.order, name)
	c.logger.Debug("registered dataset", "table", name, "path", sourcePath)
}

// Get looks up an entry case-insensitively. The second return is false
// for an unknown table; callers must treat that as "no such table", not
// as an empty one. The entry is returned by value so callers cannot
// mutate catalog state.
func (c *Catalog) Get(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[strings.ToLower(name)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// MarkLoaded flips an entry to loaded with the given row count and stamps
// last access. It is the only legal way to set Loaded.
func (c *Catalog) MarkLoaded(name string, rowCount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[strings.ToLower(name)]; ok {
		e.Loaded = true
		e.RowCount = rowCount
		e.LastAccessed = c.now()
	}
}

// MarkUnloaded flips an entry to unloaded. LastAccessed is left frozen at
// its last value.
func (c *Catalog) MarkUnloaded(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[strings.ToLower(name)]; ok {
		e.Loaded = false
		e.RowCount = 0
	}
}

// Touch updates LastAccessed without changing load state. Called on every
// successful reference to a loaded table, not only on load.
func (c *Catalog) Touch(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[strings.ToLower(name)]; ok {
		e.LastAccessed = c.now()
	}
}

// TablesByLastAccess returns loaded table names ascending by
// LastAccessed, oldest first. This ordering is the sole LRU policy.
// Ties break by discovery order for determinism.
func (c *Catalog) TablesByLastAccess() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	type candidate struct {
		name  string
		at    time.Time
		index int
	}
	candidates := make([]candidate, 0, len(c.order))
	for i, name := range c.order {
		e := c.entries[name]
		if e.Loaded {
			candidates = append(candidates, candidate{name: name, at: e.LastAccessed, index: i})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].at.Equal(candidates[j].at) {
			return candidates[i].index < candidates[j].index
		}
		return candidates[i].at.Before(candidates[j].at)
	})

	names := make([]string, len(candidates))
	for i, cand := range candidates {
		names[i] = cand.name
	}
	return names
}

// LoadedTables returns all currently loaded entries, by value, in
// discovery order.
func (c *Catalog) LoadedTables() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	loaded := make([]Entry, 0, len(c.order))
	for _, name := range c.order {
		if e := c.entries[name]; e.Loaded {
			loaded = append(loaded, *e)
		}
	}
	return loaded
}

// AllTables returns every catalog entry, by value, in discovery order.
func (c *Catalog) AllTables() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make([]Entry, 0, len(c.order))
	for _, name := range c.order {
		all = append(all, *c.entries[name])
	}
	return all
}

// TableNames returns the canonical names of every known dataset in
// discovery order.
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// Count returns the number of known datasets.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
