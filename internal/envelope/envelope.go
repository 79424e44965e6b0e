// Package envelope pairs a metric summary with its human-readable
// rendering. Both views are produced from the same value so they cannot
// disagree.
package envelope

import (
	"strings"

	"github.com/spiffcs/devpulse/internal/format"
)

// Field is one labelled line of a rendered summary. Fields with Indent > 0
// are nested under the preceding field.
type Field struct {
	Label  string
	Value  string
	Indent int
}

// Renderer is implemented by every summary.
type Renderer interface {
	Title() string
	Fields() []Field
}

// Envelope is a successful result.
type Envelope struct {
	Structured any
	Text       string
}

// Build wraps summary.
func Build(summary Renderer) Envelope {
	return Envelope{
		Structured: summary,
		Text:       Render(summary),
	}
}

// Render draws the title and an aligned label/value list.
func Render(r Renderer) string {
	fields := r.Fields()

	width := 0
	for _, f := range fields {
		width = max(width, format.DisplayWidth(label(f)))
	}

	var b strings.Builder
	b.WriteString(r.Title())
	b.WriteByte('\n')
	for _, f := range fields {
		line := format.PadRight(label(f), width)
		if f.Value != "" {
			line += "  " + f.Value
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func label(f Field) string {
	l := strings.Repeat("  ", f.Indent) + f.Label
	if f.Value != "" {
		l += ":"
	}
	return l
}

// Value builds a field.
func Value(label, value string) Field {
	return Field{Label: label, Value: value}
}

// Header builds a field that introduces the nested fields after it.
func Header(label string) Field {
	return Field{Label: label + ":"}
}

// Nested builds an indented field.
func Nested(label, value string) Field {
	return Field{Label: label, Value: value, Indent: 1}
}

// Item builds an indented list entry.
func Item(text string) Field {
	return Field{Label: "- " + text, Indent: 1}
}
