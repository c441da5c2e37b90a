package output

import (
	"bytes"
	"encoding/json"
	"strings"
)

type JSONFormatter struct {
	Indent bool
}

// Format marshals listing.Data, or [] when Data is nil so scripts can always
// iterate. HTML in post bodies is left unescaped.
func (f *JSONFormatter) Format(listing Listing) (string, error) {
	value := listing.Data
	if value == nil {
		value = []any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
