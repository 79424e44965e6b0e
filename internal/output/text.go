package output

import (
	"fmt"
	"io"

	"github.com/spiffcs/devpulse/internal/envelope"
)

// TextFormatter writes the plain rendering used for MCP text content.
type TextFormatter struct{}

// Format outputs the summary as aligned plain text
func (f *TextFormatter) Format(summary envelope.Renderer, w io.Writer) error {
	_, err := io.WriteString(w, envelope.Render(summary))
	return err
}

// FormatFailure outputs the failure as a single line
func (f *TextFormatter) FormatFailure(body envelope.FailureBody, w io.Writer) error {
	_, err := fmt.Fprintf(w, "error (%s): %s\n", body.Kind, body.Message)
	return err
}
