package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/quarry/pkg/core"
)

func renderResult(w io.Writer, result *core.QueryResult, format string) error {
	switch format {
	case "json":
		return renderJSON(w, result)
	case "csv":
		return renderCSV(w, result)
	default:
		return renderTable(w, result)
	}
}

func renderTable(w io.Writer, result *core.QueryResult) error {
	if result.Empty() {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(result.Columns))
	for i, col := range result.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, values := range result.Rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", result.RowCount)
	return nil
}

func renderJSON(w io.Writer, result *core.QueryResult) error {
	rows := make([]map[string]any, 0, len(result.Rows))
	for _, values := range result.Rows {
		row := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		rows = append(rows, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderCSV(w io.Writer, result *core.QueryResult) error {
	_, _ = fmt.Fprintln(w, strings.Join(result.Columns, ","))

	for _, values := range result.Rows {
		fields := make([]string, len(values))
		for i, v := range values {
			fields[i] = escapeCSV(formatValue(v))
		}
		_, _ = fmt.Fprintln(w, strings.Join(fields, ","))
	}
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
