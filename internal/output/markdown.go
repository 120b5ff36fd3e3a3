package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders values as markdown tables.
type MarkdownFormatter struct{}

// Format renders value as Markdown.
func (f *MarkdownFormatter) Format(value any) (string, error) {
	sheets, err := sheetsFor(value)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, s := range sheets {
		if i > 0 {
			sb.WriteString("\n")
		}
		if s.title != "" {
			sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(s.title)))
		}
		writeMarkdownRow(&sb, s.header)
		sb.WriteString("|")
		for _, h := range s.header {
			sb.WriteString(strings.Repeat("-", len(h)+2) + "|")
		}
		sb.WriteString("\n")
		for _, row := range s.rows {
			writeMarkdownRow(&sb, row)
		}
		if s.footer != "" {
			sb.WriteString(fmt.Sprintf("\n**%s**\n", escapeMarkdownCell(s.footer)))
		}
	}
	return sb.String(), nil
}

func writeMarkdownRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, cell := range cells {
		sb.WriteString(" " + escapeMarkdownCell(cell) + " |")
	}
	sb.WriteString("\n")
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
