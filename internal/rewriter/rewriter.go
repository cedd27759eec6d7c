// Package rewriter prepares queries for execution: it makes sure every
// referenced table is materialized and substitutes named aggregate view
// definitions inline. It never executes anything itself.
package rewriter

import (
	"context"
	"log/slog"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/quarry/internal/catalog"
	"github.com/leapstack-labs/quarry/internal/loader"
	"github.com/leapstack-labs/quarry/pkg/core"
)

// compiledView pairs a view definition with its whole-word,
// case-insensitive matcher.
type compiledView struct {
	def core.ViewDefinition
	re  *regexp.Regexp
}

// Rewriter rewrites incoming queries against the shared catalog and
// loader.
type Rewriter struct {
	catalog *catalog.Catalog
	loader  *loader.Loader
	views   []compiledView
	logger  *slog.Logger
}

// New creates a rewriter with a static set of view definitions. View
// definitions must not reference other view names; expansion is a single
// pass, not recursive.
func New(cat *catalog.Catalog, ldr *loader.Loader, views []core.ViewDefinition, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	compiled := make([]compiledView, 0, len(views))
	for _, v := range views {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(v.Name) + `\b`)
		compiled = append(compiled, compiledView{def: v, re: re})
	}

	return &Rewriter{
		catalog: cat,
		loader:  ldr,
		views:   compiled,
		logger:  logger,
	}
}

// Optimize ensures every table the query references is loaded, then
// substitutes recognized view names with their parenthesized expansions.
// Substitution is whole-word, case-insensitive, and idempotent as long as
// no expansion contains a view name. The input string is never mutated;
// the rewritten query is returned.
//
// Loads for distinct tables run concurrently; within this call, all
// loads complete before substitution, and substitution completes before
// the caller can execute.
func (r *Rewriter) Optimize(ctx context.Context, query string) (string, error) {
	// Extract from the query plus the expansions of any view it names,
	// so tables referenced only through a view are loaded too.
	extractionText := query
	for _, v := range r.views {
		if v.re.MatchString(query) {
			extractionText += " " + v.def.ExpansionSQL
		}
	}
	tables := r.loader.ExtractReferencedTables(extractionText)

	g, gctx := errgroup.WithContext(ctx)
	for _, table := range tables {
		g.Go(func() error {
			return r.loader.EnsureLoaded(gctx, table)
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	rewritten := query
	for _, v := range r.views {
		expansion := "(" + v.def.ExpansionSQL + ")"
		before := rewritten
		rewritten = v.re.ReplaceAllString(rewritten, expansion)
		if rewritten != before {
			r.logger.Debug("substituted view", "view", v.def.Name)
		}
	}

	return rewritten, nil
}
