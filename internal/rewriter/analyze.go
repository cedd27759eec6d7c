package rewriter

import "strings"

// Analysis is a diagnostic report on a query. It is advisory only and
// never blocks or alters execution.
type Analysis struct {
	// Tables are the catalog tables the query references.
	Tables []string

	// EstimatedRows sums the loaded row counts of the referenced
	// tables. Unloaded tables contribute zero.
	EstimatedRows int64

	// Suggestions are heuristic performance hints detected from the
	// query text.
	Suggestions []string
}

// Analyze inspects a query without executing or loading anything.
func (r *Rewriter) Analyze(query string) Analysis {
	analysis := Analysis{
		Tables: r.loader.ExtractReferencedTables(query),
	}

	for _, table := range analysis.Tables {
		if entry, ok := r.catalog.Get(table); ok && entry.Loaded {
			analysis.EstimatedRows += entry.RowCount
		}
	}

	q := strings.ToLower(query)

	if strings.Contains(q, "select *") {
		analysis.Suggestions = append(analysis.Suggestions,
			"avoid SELECT *: project only the columns you need")
	}

	hasAggregate := strings.Contains(q, "group by") || strings.Contains(q, "count(") ||
		strings.Contains(q, "sum(") || strings.Contains(q, "avg(")

	if len(analysis.Tables) > 0 && !strings.Contains(q, "where") {
		analysis.Suggestions = append(analysis.Suggestions,
			"add a date filter (e.g. WHERE period_start >= ...) to limit scanned rows")
	}

	if len(analysis.Tables) > 0 && !hasAggregate && !strings.Contains(q, "limit") {
		analysis.Suggestions = append(analysis.Suggestions,
			"add a LIMIT clause to bound the result size")
	}

	return analysis
}
