// Package adapter provides the analytical engine interface and
// implementations for Quarry's data access layer.
package adapter

import (
	"context"
	"database/sql"
	"time"
)

// Config holds the configuration for connecting to an engine.
type Config struct {
	// Type specifies the engine type (e.g., "duckdb")
	Type string

	// Path is the file path for file-based engines.
	// Use ":memory:" for an in-memory database.
	Path string

	// Options contains additional driver-specific options
	Options map[string]string
}

// LoadOptions directs a bulk load from a delimited source file.
type LoadOptions struct {
	// TimestampColumn names the column the recency filter applies to.
	// Empty means no filter regardless of Since.
	TimestampColumn string

	// Since drops rows whose timestamp column is older than this instant.
	// The zero value disables the filter.
	Since time.Time

	// NumericColumns are cast to DOUBLE with null-on-failure semantics:
	// an unparseable cell becomes NULL, never a load error.
	NumericColumns []string
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Adapter defines the interface the data access layer requires from the
// embedded analytical engine: bulk load, statement execution, table
// drop, and secondary-ordering creation.
type Adapter interface {
	// Connect establishes a connection to the engine using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the engine connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// LoadCSV bulk-loads a delimited file into tableName, applying the
	// recency filter and type coercions in opts. Returns the number of
	// rows materialized. A zero return with nil error means no rows
	// qualified and no table was created.
	LoadCSV(ctx context.Context, tableName, filePath string, opts LoadOptions) (int64, error)

	// DropTable removes a table if it exists. Dropping an absent table
	// is a silent success.
	DropTable(ctx context.Context, tableName string) error

	// CreateIndex builds a secondary ordering on a single column.
	CreateIndex(ctx context.Context, tableName, column string) error

	// TableExists reports whether a table is present in the engine.
	TableExists(ctx context.Context, tableName string) (bool, error)

	// DialectName returns the SQL dialect name for this adapter (e.g., "duckdb").
	DialectName() string
}
