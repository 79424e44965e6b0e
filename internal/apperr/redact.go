package apperr

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(authorization:\s*(?:bearer|basic|token)?\s*)\S+`),
	regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/=-]{16,}`),
	regexp.MustCompile(`(?i)((?:access_)?token=)[^&\s]+`),
	regexp.MustCompile(`\b(gh[pousr]_)[A-Za-z0-9]{20,}`),
}

// Redact removes secrets and credential-looking values from a message
// before it leaves the process.
func Redact(msg string, secrets ...string) string {
	for _, s := range secrets {
		if len(s) < 4 {
			continue
		}
		msg = strings.ReplaceAll(msg, s, redacted)
	}
	for _, p := range credentialPatterns {
		msg = p.ReplaceAllString(msg, "${1}"+redacted)
	}
	return msg
}
