package core

// QueryResult holds the materialized output of a query execution.
// It is immutable once constructed; callers that need to mutate rows
// must work on a Clone.
type QueryResult struct {
	// Columns are the result column names in projection order.
	Columns []string

	// Rows are the result tuples, one inner slice per row.
	Rows [][]any

	// RowCount is len(Rows), kept explicit for serialization.
	RowCount int

	// ExecutionTimeMs is the wall-clock execution time in milliseconds.
	// Zero for results served from cache.
	ExecutionTimeMs int64
}

// Clone returns a deep copy of the result. The cache hands out clones so
// a caller mutating a row cannot alias the cached value.
func (r *QueryResult) Clone() *QueryResult {
	if r == nil {
		return nil
	}

	cp := &QueryResult{
		Columns:         make([]string, len(r.Columns)),
		Rows:            make([][]any, len(r.Rows)),
		RowCount:        r.RowCount,
		ExecutionTimeMs: r.ExecutionTimeMs,
	}
	copy(cp.Columns, r.Columns)
	for i, row := range r.Rows {
		cp.Rows[i] = make([]any, len(row))
		copy(cp.Rows[i], row)
	}
	return cp
}

// Empty reports whether the result carries no rows. An empty result is a
// successful answer ("no data"), distinct from an error ("cannot satisfy").
func (r *QueryResult) Empty() bool {
	return r == nil || len(r.Rows) == 0
}
