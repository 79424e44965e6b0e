package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/spiffcs/devpulse/internal/envelope"
	"github.com/spiffcs/devpulse/internal/format"
)

// TableFormatter formats output as a colored two-column terminal table
type TableFormatter struct {
	// Width caps the line width. Zero uses the terminal width, or no cap
	// when stdout is not a terminal.
	Width int
}

// terminalWidth returns the width of stdout, or 0 when it is not a terminal
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

// Format outputs the summary as a table
func (f *TableFormatter) Format(summary envelope.Renderer, w io.Writer) error {
	width := f.Width
	if width == 0 {
		width = terminalWidth()
	}

	fields := summary.Fields()
	labelWidth := 0
	for _, field := range fields {
		if field.Value != "" {
			labelWidth = max(labelWidth, format.DisplayWidth(indent(field)+field.Label))
		}
	}

	title := summary.Title()
	fmt.Fprintln(w, color.New(color.Bold).Sprint(title))
	fmt.Fprintln(w, strings.Repeat("━", max(format.DisplayWidth(title), labelWidth+12)))

	for _, field := range fields {
		label := indent(field) + field.Label
		if field.Value == "" {
			if field.Indent == 0 {
				label = color.New(color.Bold).Sprint(label)
			}
			fmt.Fprintln(w, fit(label, width))
			continue
		}
		line := format.PadRight(label, labelWidth) + "  " + colorValue(field.Value)
		fmt.Fprintln(w, fit(line, width))
	}
	return nil
}

// FormatFailure outputs the failure in red
func (f *TableFormatter) FormatFailure(body envelope.FailureBody, w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s\n", color.RedString("error (%s):", body.Kind), body.Message)
	if err == nil && body.RetryAfterSeconds != nil {
		_, err = fmt.Fprintf(w, "  retry after %ds\n", *body.RetryAfterSeconds)
	}
	return err
}

func indent(f envelope.Field) string {
	return strings.Repeat("  ", f.Indent)
}

// fit truncates s when a width is known. Colors are dropped from lines that
// need cutting.
func fit(s string, width int) string {
	if width <= 0 || format.DisplayWidth(s) <= width {
		return s
	}
	return format.Truncate(format.StripAnsi(s), width)
}

// colorValue dims absent values so they stand apart from zeros.
func colorValue(v string) string {
	if strings.HasPrefix(v, format.NotAvailable) {
		return color.New(color.Faint).Sprint(v)
	}
	return color.CyanString(v)
}
