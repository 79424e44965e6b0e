package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/spiffcs/devpulse/internal/envelope"
	"github.com/spiffcs/devpulse/internal/format"
)

// MarkdownFormatter formats output as Markdown
type MarkdownFormatter struct{}

// Format outputs the summary as a metric table. Fields that head a nested
// list become their own section after the table.
func (f *MarkdownFormatter) Format(summary envelope.Renderer, w io.Writer) error {
	fmt.Fprintf(w, "## %s\n\n", summary.Title())
	fmt.Fprintln(w, "| Metric | Value |")
	fmt.Fprintln(w, "|--------|-------|")

	var sections []section
	for _, field := range summary.Fields() {
		switch {
		case field.Indent > 0 && len(sections) > 0:
			last := &sections[len(sections)-1]
			last.items = append(last.items, strings.TrimPrefix(field.Label, "- "))
			if field.Value != "" {
				last.items[len(last.items)-1] += ": " + field.Value
			}
		case field.Value == "":
			sections = append(sections, section{title: strings.TrimSuffix(field.Label, ":")})
		default:
			fmt.Fprintf(w, "| %s | %s |\n", escapeCell(field.Label), escapeCell(field.Value))
		}
	}

	for _, s := range sections {
		fmt.Fprintf(w, "\n### %s\n\n", s.title)
		if len(s.items) == 0 {
			fmt.Fprintln(w, "_none_")
			continue
		}
		for _, item := range s.items {
			fmt.Fprintf(w, "- %s\n", item)
		}
	}
	return nil
}

// FormatFailure outputs the failure as a quoted block
func (f *MarkdownFormatter) FormatFailure(body envelope.FailureBody, w io.Writer) error {
	_, err := fmt.Fprintf(w, "> **Error (%s):** %s\n", body.Kind, body.Message)
	return err
}

type section struct {
	title string
	items []string
}

func escapeCell(s string) string {
	if s == "" {
		return format.NotAvailable
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
