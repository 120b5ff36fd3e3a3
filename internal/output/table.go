package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders values as ASCII tables.
type TableFormatter struct{}

// Format renders value as one table per section.
func (f *TableFormatter) Format(value any) (string, error) {
	sheets, err := sheetsFor(value)
	if err != nil {
		return "", err
	}

	rendered := make([]string, 0, len(sheets))
	for _, s := range sheets {
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		if s.title != "" {
			t.SetTitle(s.title)
		}
		t.AppendHeader(toRow(s.header))
		for _, row := range s.rows {
			t.AppendRow(toRow(row))
		}
		if s.footer != "" {
			footer := make([]string, len(s.header))
			footer[len(footer)-1] = s.footer
			t.AppendFooter(toRow(footer))
		}
		rendered = append(rendered, t.Render())
	}
	return strings.Join(rendered, "\n\n"), nil
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}
