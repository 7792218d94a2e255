package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/types"
)

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format("2006-01-02 15:04:05.000")
	case fmt.Stringer:
		return x.String()
	}
	if s, ok := types.TextOf(v); ok {
		return s
	}
	return fmt.Sprint(v)
}

// renderRows writes rows of t as a table or as JSON objects keyed by column.
func renderRows(w io.Writer, format string, t *ezdb.Table, rows []ezdb.Row) error {
	if format == "json" {
		out := make([]map[string]string, 0, len(rows))
		for _, r := range rows {
			obj := make(map[string]string, len(t.Columns))
			for i, c := range t.Columns {
				if i < len(r) {
					obj[c.Name] = formatValue(r[i])
				}
			}
			out = append(out, obj)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	header := make(table.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	body := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = formatValue(v)
		}
		body = append(body, row)
	}
	renderTable(w, header, body)
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderTable(w io.Writer, header table.Row, rows []table.Row) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.Render()
}

// renderJSON writes v as indented JSON.
func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
