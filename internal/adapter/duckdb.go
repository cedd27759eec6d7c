package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDBAdapter(logger) })
}

// stagingPrefix namespaces in-progress load artifacts so a failed load can
// never be mistaken for a queryable table.
const stagingPrefix = "__quarry_staging_"

// DuckDBAdapter implements the Adapter interface for DuckDB.
type DuckDBAdapter struct {
	BaseSQLAdapter
}

// NewDuckDBAdapter creates a new DuckDB adapter instance.
func NewDuckDBAdapter(logger *slog.Logger) *DuckDBAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger}}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	return nil
}

// LoadCSV bulk-loads a CSV file into tableName through a staging table.
// DuckDB infers the schema from the file; opts.NumericColumns are re-cast
// with TRY_CAST so unparseable cells become NULL instead of failing the
// load. The staging table is renamed into place only after the load and
// row count succeed, and is dropped on any failure.
func (a *DuckDBAdapter) LoadCSV(ctx context.Context, tableName, filePath string, opts LoadOptions) (int64, error) {
	if a.DB == nil {
		return 0, fmt.Errorf("engine connection not established")
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to get absolute path: %w", err)
	}

	staging := stagingPrefix + tableName

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE TABLE %s AS SELECT *", quoteIdent(staging))
	if len(opts.NumericColumns) > 0 {
		casts := make([]string, 0, len(opts.NumericColumns))
		for _, col := range opts.NumericColumns {
			q := quoteIdent(col)
			casts = append(casts, fmt.Sprintf("TRY_CAST(%s AS DOUBLE) AS %s", q, q))
		}
		fmt.Fprintf(&b, " REPLACE (%s)", strings.Join(casts, ", "))
	}
	fmt.Fprintf(&b, " FROM read_csv_auto('%s', header=true)", escapeString(absPath))
	if opts.TimestampColumn != "" && !opts.Since.IsZero() {
		fmt.Fprintf(&b, " WHERE %s >= TIMESTAMP '%s'",
			quoteIdent(opts.TimestampColumn), opts.Since.UTC().Format("2006-01-02 15:04:05"))
	}

	if err := a.Exec(ctx, b.String()); err != nil {
		a.dropStaging(ctx, staging)
		return 0, fmt.Errorf("failed to load CSV: %w", err)
	}

	var rowCount int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(staging)) //nolint:gosec // identifier is quoted
	if err := a.DB.QueryRowContext(ctx, countSQL).Scan(&rowCount); err != nil {
		a.dropStaging(ctx, staging)
		return 0, fmt.Errorf("failed to count loaded rows: %w", err)
	}

	if rowCount == 0 {
		// No qualifying rows: a successful no-load, not an error.
		a.dropStaging(ctx, staging)
		return 0, nil
	}

	if err := a.DropTable(ctx, tableName); err != nil {
		a.dropStaging(ctx, staging)
		return 0, err
	}
	renameSQL := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(staging), quoteIdent(tableName))
	if err := a.Exec(ctx, renameSQL); err != nil {
		a.dropStaging(ctx, staging)
		return 0, fmt.Errorf("failed to publish staged table: %w", err)
	}

	return rowCount, nil
}

// dropStaging best-effort removes a staging artifact after a failed or
// empty load.
func (a *DuckDBAdapter) dropStaging(ctx context.Context, staging string) {
	if err := a.DropTable(ctx, staging); err != nil {
		a.Logger.Warn("failed to drop staging table", "table", staging, "error", err)
	}
}

// DropTable removes a table if it exists.
func (a *DuckDBAdapter) DropTable(ctx context.Context, tableName string) error {
	return a.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(tableName)))
}

// CreateIndex builds a secondary ordering on a single column.
func (a *DuckDBAdapter) CreateIndex(ctx context.Context, tableName, column string) error {
	indexName := fmt.Sprintf("idx_%s_%s", tableName, column)
	return a.Exec(ctx, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		quoteIdent(indexName), quoteIdent(tableName), quoteIdent(column)))
}

// TableExists reports whether a table is present in the main schema.
func (a *DuckDBAdapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	if a.DB == nil {
		return false, fmt.Errorf("engine connection not established")
	}

	query := `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'main' AND table_name = ?
	`
	var count int
	if err := a.DB.QueryRowContext(ctx, query, tableName).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query table existence: %w", err)
	}
	return count > 0, nil
}

// DialectName returns the SQL dialect name for this adapter.
func (a *DuckDBAdapter) DialectName() string {
	return "duckdb"
}

// quoteIdent double-quotes an identifier for DuckDB.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// escapeString escapes a single-quoted SQL string literal.
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Ensure DuckDBAdapter implements Adapter interface
var _ Adapter = (*DuckDBAdapter)(nil)
