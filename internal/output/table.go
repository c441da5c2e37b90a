package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders listings as an ASCII table.
type TableFormatter struct{}

// Format renders listing as a rounded table with the title above it.
func (f *TableFormatter) Format(listing Listing) (string, error) {
	if len(listing.Rows) == 0 {
		if listing.Title != "" {
			return listing.Title + "\n" + emptyText(listing), nil
		}
		return emptyText(listing), nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if listing.Title != "" {
		t.SetTitle(listing.Title)
	}
	t.AppendHeader(toRow(listing.Header))
	for _, row := range listing.Rows {
		t.AppendRow(toRow(row))
	}
	return t.Render(), nil
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}
