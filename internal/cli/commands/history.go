package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent query executions",
		Long: `Show the most recent query executions from the history log.

Requires history_path to be configured; without it the log is disabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			records, err := eng.RecentQueries(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No query history (is history_path configured?)")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Executed At", "Query", "Rows", "Duration (ms)", "Cache Hit"})

			for _, rec := range records {
				query := rec.Query
				if len(query) > 60 {
					query = query[:57] + "..."
				}
				t.AppendRow(table.Row{
					rec.ExecutedAt.Format("2006-01-02 15:04:05"),
					query, rec.RowCount, rec.DurationMs, rec.CacheHit,
				})
			}

			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of rows to show")
	return cmd
}
