package envelope

import (
	"fmt"
	"math"

	"github.com/go-faster/errors"

	"github.com/spiffcs/devpulse/internal/apperr"
)

// FailureBody is the structured form of a failed computation.
type FailureBody struct {
	Kind              apperr.Kind `json:"kind"`
	Integration       string      `json:"integration,omitempty"`
	Message           string      `json:"message"`
	RetryAfterSeconds *int        `json:"retry_after_seconds,omitempty"`
}

// Failure builds the envelope for err.
func Failure(err error, secrets ...string) Envelope {
	body := NewFailureBody(err, secrets...)
	return Envelope{
		Structured: body,
		Text:       fmt.Sprintf("error (%s): %s\n", body.Kind, body.Message),
	}
}

// NewFailureBody describes err. The message is redacted of secrets and of
// anything that looks like a credential.
func NewFailureBody(err error, secrets ...string) FailureBody {
	body := FailureBody{
		Kind:    apperr.KindOf(err),
		Message: apperr.Redact(err.Error(), secrets...),
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		body.Integration = e.Integration
		if d, ok := e.RetryAfter(); ok {
			s := int(math.Ceil(d.Seconds()))
			body.RetryAfterSeconds = &s
		}
	}
	return body
}
