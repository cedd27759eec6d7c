package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List discovered datasets and their load state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			entries := eng.Tables()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No datasets discovered")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Table", "Source", "Loaded", "Rows", "Last Accessed"})

			for _, e := range entries {
				lastAccessed := "never"
				if !e.LastAccessed.IsZero() {
					lastAccessed = e.LastAccessed.Format("2006-01-02 15:04:05")
				}
				rows := ""
				if e.Loaded {
					rows = fmt.Sprintf("%d", e.RowCount)
				}
				t.AppendRow(table.Row{e.Name, e.SourcePath, e.Loaded, rows, lastAccessed})
			}

			t.Render()
			return nil
		},
	}
}
