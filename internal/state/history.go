// Package state persists a query execution history to SQLite. The
// history is an observability log only: cache and catalog state are
// rebuilt from scratch on every start.
package state

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver
)

//go:embed schema.sql
var schemaSQL string

// QueryRecord is one executed query in the history log.
type QueryRecord struct {
	ID         string
	Query      string
	Params     string
	DurationMs int64
	RowCount   int
	CacheHit   bool
	ExecutedAt time.Time
}

// HistoryStore implements the query history log over SQLite.
type HistoryStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewHistoryStore creates a new history store instance.
func NewHistoryStore(logger *slog.Logger) *HistoryStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HistoryStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *HistoryStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema initializes the database schema.
func (s *HistoryStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// RecordQuery appends one execution to the history. The record's ID and
// ExecutedAt are filled in when zero.
func (s *HistoryStore) RecordQuery(rec QueryRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.ExecutedAt.IsZero() {
		rec.ExecutedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO query_history (id, query, params, duration_ms, row_count, cache_hit, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.Params, rec.DurationMs, rec.RowCount, rec.CacheHit, rec.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}

	s.logger.Debug("recorded query", "id", rec.ID, "duration_ms", rec.DurationMs, "cache_hit", rec.CacheHit)
	return nil
}

// RecentQueries returns the most recent executions, newest first.
func (s *HistoryStore) RecentQueries(limit int) ([]QueryRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, query, params, duration_ms, row_count, cache_hit, executed_at
		FROM query_history
		ORDER BY executed_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []QueryRecord
	for rows.Next() {
		var rec QueryRecord
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Params, &rec.DurationMs,
			&rec.RowCount, &rec.CacheHit, &rec.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return records, nil
}
