// Package core defines the shared language of the Quarry system.
//
// This package contains:
//   - Result types (QueryResult)
//   - View definitions (named aggregate shortcuts)
//   - The error taxonomy shared by catalog, loader, cache and engine
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
