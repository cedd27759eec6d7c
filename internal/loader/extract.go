package loader

import (
	"regexp"
	"strings"
)

// identTokenRe matches SQL identifier-shaped tokens.
var identTokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// ExtractReferencedTables returns the catalog table names that appear as
// whole tokens in the query text, in catalog discovery order.
//
// This is a deliberate heuristic, not a SQL parser: the query is split on
// non-identifier boundaries and each token is matched against known
// catalog names. It can over-select (a table name inside a string literal
// or comment counts as a reference) but never under-selects a genuinely
// referenced table. A missed table would surface as a missing-table error
// at execution time.
func (l *Loader) ExtractReferencedTables(query string) []string {
	tokens := make(map[string]struct{})
	for _, tok := range identTokenRe.FindAllString(query, -1) {
		tokens[strings.ToLower(tok)] = struct{}{}
	}

	var referenced []string
	for _, name := range l.catalog.TableNames() {
		if _, ok := tokens[name]; ok {
			referenced = append(referenced, name)
		}
	}
	return referenced
}
