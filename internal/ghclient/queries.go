package ghclient

import (
	"regexp"
	"strings"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/window"
)

var (
	// GitHub logins: alphanumerics and single hyphens, up to 39 chars.
	// App accounts carry a "[bot]" suffix.
	loginPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9]){0,38}(\[bot\])?$`)
	repoPattern  = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
)

// ValidateLogin rejects anything that is not a GitHub login, which keeps
// search qualifiers from being injected through the principal.
func ValidateLogin(login string) error {
	if !loginPattern.MatchString(login) {
		return apperr.Validation("login %q is not a valid GitHub username", login)
	}
	return nil
}

// ValidateRepos checks every entry is an owner/name pair.
func ValidateRepos(repos []string) error {
	for _, r := range repos {
		if !repoPattern.MatchString(r) {
			return apperr.Validation("repo %q must be in owner/name form", r)
		}
	}
	return nil
}

// AuthoredQuery builds the search query for pull requests login opened
// inside w, optionally restricted to repos.
func AuthoredQuery(login string, w window.Window, repos []string) (string, error) {
	if err := validate(login, w, repos); err != nil {
		return "", err
	}
	parts := []string{
		"author:" + login,
		"type:pr",
		"created:" + w.FromDate() + ".." + w.ToDate(),
	}
	return joinQuery(parts, repos), nil
}

// ReviewedQuery builds the search query for pull requests login reviewed
// that could carry a review inside w: opened no later than the window end
// and updated no earlier than its start.
func ReviewedQuery(login string, w window.Window, repos []string) (string, error) {
	if err := validate(login, w, repos); err != nil {
		return "", err
	}
	parts := []string{
		"reviewed-by:" + login,
		"type:pr",
		"created:<=" + w.ToDate(),
		"updated:>=" + w.FromDate(),
	}
	return joinQuery(parts, repos), nil
}

func validate(login string, w window.Window, repos []string) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := ValidateLogin(login); err != nil {
		return err
	}
	return ValidateRepos(repos)
}

// joinQuery appends one repo: qualifier per repository. GitHub ORs
// repeated repo qualifiers.
func joinQuery(parts, repos []string) string {
	for _, r := range repos {
		parts = append(parts, "repo:"+r)
	}
	return strings.Join(parts, " ")
}
