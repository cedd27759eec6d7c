package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format  string
	Params  []string
	Analyze bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query SQL",
		Short: "Run a query against the dataset catalog",
		Long: `Run a read query against the discovered datasets.

Referenced tables are loaded on demand, bounded by the recency window.
Results are cached with a TTL derived from the query shape. Named
parameters use :name placeholders and are supplied with --param.`,
		Example: `  # One-shot query
  quarry query "SELECT metric_type, SUM(value) FROM energy_daily GROUP BY metric_type"

  # With a named parameter
  quarry query "SELECT * FROM energy_daily WHERE source_id = :src LIMIT 10" --param src=meter_1

  # Explain what the optimizer would do, without executing
  quarry query "SELECT * FROM energy_daily" --analyze`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "output format: table, json, csv")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "named parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Analyze, "analyze", false, "report referenced tables and suggestions instead of executing")

	return cmd
}

func runQuery(cmd *cobra.Command, query string, opts *QueryOptions) error {
	ctx := cmd.Context()

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if opts.Analyze {
		analysis := eng.Analyze(query)
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Tables: %s\n", strings.Join(analysis.Tables, ", "))
		_, _ = fmt.Fprintf(out, "Estimated rows: %d\n", analysis.EstimatedRows)
		for _, s := range analysis.Suggestions {
			_, _ = fmt.Fprintf(out, "Suggestion: %s\n", s)
		}
		return nil
	}

	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}

	result, err := eng.Query(ctx, query, params)
	if err != nil {
		return err
	}

	return renderResult(cmd.OutOrStdout(), result, opts.Format)
}

// parseParams converts key=value pairs into a parameter map.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}
