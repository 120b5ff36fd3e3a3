package output

import (
	"bytes"
	"encoding/json"
	"strings"
)

// JSONFormatter renders values as JSON. Payloads are written without HTML
// escaping so upstream URLs and names read as the API sent them.
type JSONFormatter struct {
	Indent bool
}

// Format renders value as JSON without a trailing newline.
func (f *JSONFormatter) Format(value any) (string, error) {
	if isNil(value) {
		return "", nil
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
