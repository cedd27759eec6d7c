// Package cache memoizes query results keyed by a content digest of the
// query text and its parameters. Entries expire on a fixed schedule from
// creation and the cache holds a bounded number of entries, evicting the
// globally oldest first.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/quarry/pkg/core"
)

// entry is one cached result with its expiry bookkeeping.
type entry struct {
	result    *core.QueryResult
	createdAt time.Time
	ttl       time.Duration
}

// Config holds cache settings.
type Config struct {
	// Capacity bounds the number of entries. Zero or negative falls
	// back to 100.
	Capacity int

	// Classify maps a query's text to its TTL. Nil falls back to a
	// classifier built from DefaultTTLs.
	Classify ClassifierFunc
}

// QueryCache is a bounded TTL cache for query results. It is
// query-string addressed and has no awareness of catalog or load state.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	capacity int
	classify ClassifierFunc
	logger   *slog.Logger

	now func() time.Time
}

// New creates a query cache.
func New(cfg Config, logger *slog.Logger) *QueryCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 100
	}
	if cfg.Classify == nil {
		cfg.Classify = NewClassifier(DefaultTTLs())
	}
	return &QueryCache{
		entries:  make(map[string]*entry),
		capacity: cfg.Capacity,
		classify: cfg.Classify,
		logger:   logger,
		now:      time.Now,
	}
}

// Key computes the deterministic digest for a query and its parameters:
// SHA-256 over the whitespace-normalized, lowercased query text and the
// JSON serialization of the parameters (map keys sorted by the encoder).
func Key(query string, params map[string]any) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))

	h := sha256.New()
	h.Write([]byte(normalized))
	if len(params) > 0 {
		h.Write([]byte{0})
		// encoding/json sorts map keys, which makes this deterministic.
		if encoded, err := json.Marshal(params); err == nil {
			h.Write(encoded)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for a query if present and fresh. A stale
// entry is evicted and reported absent. A hit does not refresh the
// entry's creation time: entries expire on a fixed schedule from insert.
// The returned result is a clone with ExecutionTimeMs zeroed: no engine
// work happened on this call, and callers cannot mutate cached state.
func (c *QueryCache) Get(query string, params map[string]any) (*core.QueryResult, bool) {
	key := Key(query, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) >= e.ttl {
		delete(c.entries, key)
		return nil, false
	}

	result := e.result.Clone()
	result.ExecutionTimeMs = 0
	return result, true
}

// Set stores a result under the query's digest. At capacity the single
// entry with the oldest creation time is evicted first (creation-time
// FIFO, not access-recency LRU). The result is cloned on insert.
func (c *QueryCache) Set(query string, result *core.QueryResult, params map[string]any) {
	key := Key(query, params)
	ttl := c.classify(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	c.entries[key] = &entry{
		result:    result.Clone(),
		createdAt: c.now(),
		ttl:       ttl,
	}
	c.logger.Debug("cached query result", "key", key[:12], "ttl", ttl, "rows", result.RowCount)
}

// evictOldest removes the entry with the smallest createdAt.
// Caller must hold c.mu.
func (c *QueryCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// GetOrExecute serves the cached result or runs the executor and caches
// its output.
//
// There is no in-flight de-duplication: concurrent identical queries
// arriving before the first completes will each miss and each execute.
// That is a documented limitation, not a correctness bug, because the
// workload is idempotent pure reads.
func (c *QueryCache) GetOrExecute(
	ctx context.Context,
	query string,
	params map[string]any,
	execute func(ctx context.Context) (*core.QueryResult, error),
) (*core.QueryResult, bool, error) {
	if result, ok := c.Get(query, params); ok {
		return result, true, nil
	}

	result, err := execute(ctx)
	if err != nil {
		return nil, false, err
	}

	c.Set(query, result, params)
	return result, false, nil
}

// Len returns the current number of entries, counting stale ones not yet
// lazily evicted.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}
