package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/quarry/internal/engine"
)

// NewReplCommand creates the interactive REPL command.
func NewReplCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive query session",
		Long: `Start an interactive session against the dataset catalog.

Statements end with a semicolon. Dot-commands:
  .tables       list datasets and load state
  .analyze SQL  report what the optimizer would do
  .evict N      evict the N least-recently-used tables
  .help         show this help
  .quit         exit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json, csv")
	return cmd
}

func runRepl(cmd *cobra.Command, format string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	eng.Start()

	completer := newTableCompleter(eng)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "quarry> ",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(out, "Quarry REPL. Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt("quarry> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if line == ".quit" || line == ".exit" {
				break
			}
			handleDotCommand(ctx, cmd, eng, line)
			continue
		}

		buffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buffer.WriteString(" ")
			rl.SetPrompt("   ...> ")
			continue
		}

		query := strings.TrimSuffix(strings.TrimSpace(buffer.String()), ";")
		buffer.Reset()
		rl.SetPrompt("quarry> ")

		result, err := eng.Query(ctx, query, nil)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if err := renderResult(out, result, format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}

	return nil
}

func handleDotCommand(ctx context.Context, cmd *cobra.Command, eng *engine.Engine, line string) {
	out := cmd.OutOrStdout()
	fields := strings.Fields(line)

	switch fields[0] {
	case ".help":
		_, _ = fmt.Fprintln(out, ".tables       list datasets and load state")
		_, _ = fmt.Fprintln(out, ".analyze SQL  report what the optimizer would do")
		_, _ = fmt.Fprintln(out, ".evict N      evict the N least-recently-used tables")
		_, _ = fmt.Fprintln(out, ".quit         exit")
	case ".tables":
		for _, e := range eng.Tables() {
			state := "unloaded"
			if e.Loaded {
				state = fmt.Sprintf("loaded (%d rows)", e.RowCount)
			}
			_, _ = fmt.Fprintf(out, "%s  %s\n", e.Name, state)
		}
	case ".analyze":
		if len(fields) < 2 {
			_, _ = fmt.Fprintln(out, "usage: .analyze SQL")
			return
		}
		analysis := eng.Analyze(strings.TrimPrefix(line, ".analyze "))
		_, _ = fmt.Fprintf(out, "Tables: %s\n", strings.Join(analysis.Tables, ", "))
		_, _ = fmt.Fprintf(out, "Estimated rows: %d\n", analysis.EstimatedRows)
		for _, s := range analysis.Suggestions {
			_, _ = fmt.Fprintf(out, "Suggestion: %s\n", s)
		}
	case ".evict":
		count := 1
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil {
				count = n
			}
		}
		evicted := eng.ForceEvict(ctx, count)
		_, _ = fmt.Fprintf(out, "Evicted %d table(s)\n", evicted)
	default:
		_, _ = fmt.Fprintf(out, "Unknown command %s (try .help)\n", fields[0])
	}
}

// newTableCompleter creates a readline completer over catalog table names.
func newTableCompleter(eng *engine.Engine) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".tables"),
		readline.PcItem(".analyze"),
		readline.PcItem(".evict"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
	}
	for _, e := range eng.Tables() {
		items = append(items, readline.PcItem(e.Name))
	}
	return readline.NewPrefixCompleter(items...)
}
