package output

import (
	"encoding/json"
	"io"

	"github.com/spiffcs/devpulse/internal/envelope"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

// Format writes the structured summary, the same value an MCP client
// receives as structured content.
func (f *JSONFormatter) Format(summary envelope.Renderer, w io.Writer) error {
	return f.encode(summary, w)
}

// FormatFailure writes the failure body as JSON
func (f *JSONFormatter) FormatFailure(body envelope.FailureBody, w io.Writer) error {
	return f.encode(body, w)
}

func (f *JSONFormatter) encode(v any, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}
