package core

import "fmt"

// DiscoveryError is returned when the dataset source directory cannot be
// scanned. It is fatal: the process cannot serve queries without a catalog.
type DiscoveryError struct {
	Dir string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to scan dataset directory %s: %v", e.Dir, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// UnknownTableError is returned when a query references a table absent from
// the catalog. The query is not executed.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table %q: not present in dataset catalog", e.Table)
}

// LoadError is returned when materializing a dataset into the engine fails.
// The staging artifact has already been cleaned up; the caller may retry.
type LoadError struct {
	Table      string
	SourcePath string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load table %q from %s: %v", e.Table, e.SourcePath, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ExecutionError is returned when the engine rejects a rewritten query.
// Query carries the original (pre-rewrite) text for caller diagnosis.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v (query: %s)", e.Err, e.Query)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
