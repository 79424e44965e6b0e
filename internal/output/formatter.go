package output

import (
	"io"
	"strings"

	"github.com/go-faster/errors"

	"github.com/spiffcs/devpulse/internal/envelope"
)

// Format represents the output format
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatTable, FormatJSON, FormatMarkdown, FormatText}

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.Errorf("unknown output format %q (want table, json, markdown or text)", s)
}

// Formatter defines the interface for output formatters
type Formatter interface {
	Format(summary envelope.Renderer, w io.Writer) error
	FormatFailure(body envelope.FailureBody, w io.Writer) error
}

// NewFormatter creates a formatter for the specified format
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Pretty: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatText:
		return &TextFormatter{}
	default:
		return &TableFormatter{}
	}
}
