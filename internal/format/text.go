// Package format provides shared text formatting utilities for terminal
// and plain-text output.
package format

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripAnsi removes ANSI escape sequences from a string.
func StripAnsi(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// DisplayWidth returns the visible width of s in terminal columns. ANSI
// sequences take no space; a rune followed by U+FE0F is drawn as a
// two-column emoji.
func DisplayWidth(s string) int {
	runes := []rune(StripAnsi(s))
	width := 0
	for i := 0; i < len(runes); i++ {
		if i+1 < len(runes) && runes[i+1] == '\uFE0F' {
			width += 2
			i++
			continue
		}
		if runes[i] == '\uFE0F' {
			continue
		}
		width += runewidth.RuneWidth(runes[i])
	}
	return width
}

// Truncate shortens plain text to at most maxWidth columns, ending it with
// "..." when anything was cut.
func Truncate(s string, maxWidth int) string {
	if DisplayWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", max(maxWidth, 0))
	}
	return runewidth.Truncate(StripAnsi(s), maxWidth, "...")
}

// PadRight pads s with spaces to width visible columns.
func PadRight(s string, width int) string {
	if w := DisplayWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// PadLeft right-aligns s in width visible columns.
func PadLeft(s string, width int) string {
	if w := DisplayWidth(s); w < width {
		return strings.Repeat(" ", width-w) + s
	}
	return s
}

// MaxWidth returns the widest visible width among values.
func MaxWidth(values ...string) int {
	widest := 0
	for _, v := range values {
		widest = max(widest, DisplayWidth(v))
	}
	return widest
}
