package fetch

import (
	"encoding/base64"
	"net/http"
)

// Auth attaches credentials to an outgoing request. Implementations must
// not log or expose the credential.
type Auth interface {
	Apply(req *http.Request)
	// Secrets returns the raw credential values for redaction.
	Secrets() []string
}

type bearerAuth struct{ token string }

// Bearer authenticates with "Authorization: Bearer <token>".
func Bearer(token string) Auth { return bearerAuth{token: token} }

func (a bearerAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.token)
}

func (a bearerAuth) Secrets() []string { return []string{a.token} }

type basicAuth struct{ user, secret string }

// Basic authenticates with HTTP basic auth, e.g. an Atlassian email and API token.
func Basic(user, secret string) Auth { return basicAuth{user: user, secret: secret} }

func (a basicAuth) Apply(req *http.Request) {
	req.SetBasicAuth(a.user, a.secret)
}

func (a basicAuth) Secrets() []string {
	raw := base64.StdEncoding.EncodeToString([]byte(a.user + ":" + a.secret))
	return []string{a.secret, raw}
}
