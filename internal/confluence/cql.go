package confluence

import (
	"strings"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/window"
)

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote renders s as a CQL string literal.
func Quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}

// CreatedCQL finds pages principal created inside w.
func CreatedCQL(principal string, w window.Window, space string) (string, error) {
	if err := w.Validate(); err != nil {
		return "", err
	}
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return "", apperr.Validation("user_email_or_account_id is required")
	}
	clauses := []string{
		"creator = " + Quote(principal),
		"created >= " + Quote(w.FromDate()),
		"created < " + Quote(w.EndDate()),
		"type = page",
	}
	return withSpace(clauses, space), nil
}

// ModifiedCQL finds pages last modified inside w by anyone. CQL cannot
// filter on the last modifier, so callers filter the results.
func ModifiedCQL(w window.Window, space string) (string, error) {
	if err := w.Validate(); err != nil {
		return "", err
	}
	clauses := []string{
		"lastModified >= " + Quote(w.FromDate()),
		"lastModified < " + Quote(w.EndDate()),
		"type = page",
	}
	return withSpace(clauses, space), nil
}

func withSpace(clauses []string, space string) string {
	if space = strings.TrimSpace(space); space != "" {
		clauses = append(clauses, "space = "+Quote(space))
	}
	return strings.Join(clauses, " AND ")
}
