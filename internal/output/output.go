// Package output renders CLI listings as tables, markdown or JSON.
package output

import (
	"fmt"
	"sort"
	"strings"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Listing is a titled set of rows. JSON output marshals Data; the other
// formats render Header and Rows.
type Listing struct {
	Title  string
	Header []string
	Rows   [][]string
	Data   any
	// Empty replaces the table when Rows is empty.
	Empty string
}

type Formatter interface {
	Format(listing Listing) (string, error)
}

var formatters = map[Format]func() Formatter{
	FormatTable:    func() Formatter { return &TableFormatter{} },
	FormatJSON:     func() Formatter { return &JSONFormatter{Indent: true} },
	FormatMarkdown: func() Formatter { return &MarkdownFormatter{} },
}

var formatAliases = map[string]Format{"": FormatTable, "md": FormatMarkdown}

// ParseFormat accepts a format name in any case; empty means table.
func ParseFormat(value string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(value))
	if f, ok := formatAliases[name]; ok {
		return f, nil
	}
	if _, ok := formatters[Format(name)]; ok {
		return Format(name), nil
	}
	return "", fmt.Errorf("unsupported output format: %s (want one of %s)", value, strings.Join(FormatNames(), ", "))
}

// FormatNames lists the accepted format names for flag help.
func FormatNames() []string {
	names := make([]string, 0, len(formatters))
	for f := range formatters {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// NewFormatter falls back to a table for unknown formats.
func NewFormatter(format Format) Formatter {
	if mk, ok := formatters[format]; ok {
		return mk()
	}
	return &TableFormatter{}
}

func Render(format Format, listing Listing) (string, error) {
	return NewFormatter(format).Format(listing)
}

func emptyText(listing Listing) string {
	if listing.Empty != "" {
		return listing.Empty
	}
	return "(none)"
}

// truncate collapses whitespace and cuts s to n runes, ending in an ellipsis
// when shortened.
func truncate(s string, n int) string {
	runes := []rune(strings.Join(strings.Fields(s), " "))
	if n <= 0 || len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n-1]) + "…"
}
