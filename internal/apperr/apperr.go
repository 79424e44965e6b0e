// Package apperr defines the closed error taxonomy shared by every
// integration. Upstream failures are classified once, at the HTTP layer,
// and travel unchanged to the tool boundary.
package apperr

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-faster/errors"
)

// Kind identifies an error class in the taxonomy.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindAuthentication Kind = "authentication_failed"
	KindRejected       Kind = "request_rejected"
	KindRateLimited    Kind = "rate_limited"
	KindUnavailable    Kind = "unavailable"
	KindConfiguration  Kind = "configuration_error"
	KindCanceled       Kind = "canceled"
	KindUnknown        Kind = "unknown"
)

// Error is a classified failure.
type Error struct {
	Kind        Kind
	Integration string
	Status      int
	Message     string
	Body        string // excerpt of a rejected response body
	Err         error

	retryAfter    time.Duration
	hasRetryAfter bool
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Integration != "" {
		msg = e.Integration + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.hasRetryAfter {
		msg = fmt.Sprintf("%s, retry after %s", msg, e.retryAfter)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// RetryAfter returns the server supplied resume hint, if any.
func (e *Error) RetryAfter() (time.Duration, bool) {
	return e.retryAfter, e.hasRetryAfter
}

// Validation reports bad input rejected before any network call.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Configuration reports missing or invalid process configuration.
func Configuration(integration, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Integration: integration, Message: fmt.Sprintf(format, args...)}
}

// RateLimited reports a 429. A negative retryAfter means the server gave no hint.
func RateLimited(integration string, retryAfter time.Duration) *Error {
	e := &Error{Kind: KindRateLimited, Integration: integration, Status: 429, Message: "rate limited"}
	if retryAfter >= 0 {
		e.retryAfter = retryAfter
		e.hasRetryAfter = true
	}
	return e
}

// AuthFailed reports a 401 or 403.
func AuthFailed(integration string, status int) *Error {
	return &Error{Kind: KindAuthentication, Integration: integration, Status: status, Message: "authentication failed"}
}

// Rejected reports any other 4xx.
func Rejected(integration string, status int, body string) *Error {
	return &Error{Kind: KindRejected, Integration: integration, Status: status, Message: "request rejected", Body: body}
}

// Unavailable reports a 5xx, network failure or timeout.
func Unavailable(integration string, status int, cause error) *Error {
	return &Error{Kind: KindUnavailable, Integration: integration, Status: status, Message: "upstream unavailable", Err: cause}
}

// FromStatus maps a non-2xx status to the taxonomy. It returns nil for
// statuses below 400.
func FromStatus(integration string, status int, body string, retryAfter time.Duration) *Error {
	switch {
	case status < 400:
		return nil
	case status == 429:
		return RateLimited(integration, retryAfter)
	case status == 401 || status == 403:
		return AuthFailed(integration, status)
	case status < 500:
		return Rejected(integration, status, body)
	default:
		return Unavailable(integration, status, nil)
	}
}

// KindOf reports the taxonomy kind of err, looking through wrapping.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindUnknown
}

// IsKind reports whether err is classified as k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// Classify normalizes an error returned by an HTTP round trip. Typed errors
// pass through; caller cancellation is returned as is; deadlines, timeouts
// and network failures become Unavailable.
func Classify(ctx context.Context, integration string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || (ctx != nil && errors.Is(ctx.Err(), context.Canceled)) {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Unavailable(integration, 0, errors.New("request timed out"))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Unavailable(integration, 0, errors.New("request timed out"))
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Unavailable(integration, 0, urlErr.Err)
	}
	return Unavailable(integration, 0, err)
}
