package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders listings as a markdown table.
type MarkdownFormatter struct{}

// Format renders listing as Markdown.
func (f *MarkdownFormatter) Format(listing Listing) (string, error) {
	var sb strings.Builder
	if listing.Title != "" {
		sb.WriteString(fmt.Sprintf("## %s\n\n", listing.Title))
	}
	if len(listing.Rows) == 0 {
		sb.WriteString(emptyText(listing))
		sb.WriteString("\n")
		return sb.String(), nil
	}

	sb.WriteString("| " + strings.Join(escapeRow(listing.Header), " | ") + " |\n")
	seps := make([]string, len(listing.Header))
	for i := range seps {
		seps[i] = "---"
	}
	sb.WriteString("|" + strings.Join(seps, "|") + "|\n")
	for _, row := range listing.Rows {
		sb.WriteString("| " + strings.Join(escapeRow(row), " | ") + " |\n")
	}
	return sb.String(), nil
}

func escapeRow(cells []string) []string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		out[i] = escapeMarkdownCell(cell)
	}
	return out
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.ReplaceAll(value, "|", "\\|")
}
