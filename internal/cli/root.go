// Package cli provides the command-line interface for Quarry.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/quarry/internal/cli/commands"
	"github.com/leapstack-labs/quarry/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quarry",
		Short: "Quarry - lazy-loading analytical data access layer",
		Long: `Quarry is a memory-bounded data access layer built with Go and DuckDB.

It discovers CSV datasets, loads them into queryable tables on first
reference, evicts least-recently-used tables under memory pressure,
caches query results, and rewrites queries against named views.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			cmd.SetContext(commands.ContextWith(cmd.Context(), cfg, logger))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Built with Go and DuckDB
`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default quarry.yaml)")
	flags.String("data-dir", "", "dataset source directory")
	flags.String("database-path", "", "engine database path (default in-memory)")
	flags.String("history-path", "", "query history database path")
	flags.Int64("memory-limit-mb", 0, "memory ceiling for loaded tables")
	flags.Int("recency-window-days", 0, "trailing window of rows to load")
	flags.Bool("watch", false, "register dataset files created after startup")
	flags.Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(
		commands.NewQueryCommand(),
		commands.NewTablesCommand(),
		commands.NewHistoryCommand(),
		commands.NewReplCommand(),
		commands.NewVersionCommand(Version),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
