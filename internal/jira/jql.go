package jira

import (
	"strings"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/window"
)

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote renders s as a JQL string literal.
func Quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}

// AssignedJQL builds the search for issues assigned to principal and
// created inside w. extra is caller-supplied JQL and is appended verbatim
// inside parentheses.
func AssignedJQL(principal string, w window.Window, extra string) (string, error) {
	if err := w.Validate(); err != nil {
		return "", err
	}
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return "", apperr.Validation("user_email_or_account_id is required")
	}

	clauses := []string{
		"assignee = " + Quote(principal),
		"created >= " + Quote(w.FromDate()),
		"created < " + Quote(w.EndDate()),
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		clauses = append(clauses, "("+extra+")")
	}
	return strings.Join(clauses, " AND ") + " ORDER BY created ASC", nil
}
