package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/roach88/nlsql/internal/store"
)

// renderRows prints query results as a table followed by a row count.
func renderRows(w io.Writer, rows *store.Rows) {
	if len(rows.Columns) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(rows.Columns))
	for i, col := range rows.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, values := range rows.Values {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = v
		}
		t.AppendRow(row)
	}
	t.Render()

	if len(rows.Values) == 1 {
		fmt.Fprintln(w, "(1 row)")
	} else {
		fmt.Fprintf(w, "(%d rows)\n", len(rows.Values))
	}
}

// renderHistory prints logged resolutions newest first.
func renderHistory(w io.Writer, records []store.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "TIME", "DIALECT", "OK", "INPUT", "RESULT"})

	for _, rec := range records {
		status := "✓"
		result := rec.SQL
		if !rec.OK {
			status = "✗"
			result = "[FAIL:" + rec.FailCategory + "]"
		} else if rec.Relaxed {
			result += " (lenient)"
		}
		t.AppendRow(table.Row{
			rec.ID,
			rec.CreatedAt.Local().Format(time.DateTime),
			rec.Dialect,
			status,
			truncate(rec.Input, 40),
			truncate(result, 60),
		})
	}
	t.Render()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
