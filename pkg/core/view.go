package core

// ViewDefinition maps a named aggregate shortcut to the query fragment that
// defines it. The rewriter substitutes the name with the parenthesized
// expansion wherever it appears as a whole word in a query.
//
// Definitions are immutable after initialization and must not reference
// other view names (no recursive expansion is performed).
type ViewDefinition struct {
	// Name is the substitutable identifier, matched case-insensitively.
	Name string

	// ExpansionSQL is the defining query fragment, without surrounding
	// parentheses. The rewriter adds them on substitution.
	ExpansionSQL string
}
