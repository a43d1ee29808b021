package cli

import (
	"fmt"
	"io"

	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/marinad-syro/inferra/pkg/table"
)

// renderSample prints up to n rows of the table in a bordered grid.
func renderSample(w io.Writer, tbl *table.Table, n int) {
	cols := tbl.Columns()
	records := tbl.SampleRecords(n, nil)
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(prettytable.StyleLight)

	headerRow := make(prettytable.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, rec := range records {
		row := make(prettytable.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(rec[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d of %d rows)\n", len(records), tbl.Len())
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
