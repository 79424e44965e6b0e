package fetch

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/log"
	"github.com/spiffcs/devpulse/internal/telemetry"
)

// Transport wraps an http.RoundTripper for one integration. It attaches
// credentials and fixed headers, logs one line per request, records
// request metrics, and turns every non-2xx response into an *apperr.Error.
type Transport struct {
	Base        http.RoundTripper
	Integration string
	Auth        Auth              // optional
	Headers     map[string]string // optional fixed headers
	Registry    *telemetry.Registry
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Auth != nil || len(t.Headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.Headers {
			req.Header.Set(k, v)
		}
		if t.Auth != nil {
			t.Auth.Apply(req)
		}
	}

	start := time.Now()
	resp, err := t.base().RoundTrip(req)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if t.Registry != nil {
		t.Registry.ObserveRequest(t.Integration, status, elapsed)
	}
	log.Debug("upstream request",
		"integration", t.Integration,
		"method", req.Method,
		"url", safeURL(req.URL),
		"status", status,
		"duration", elapsed.Round(time.Millisecond),
	)

	if err != nil {
		return nil, apperr.Classify(req.Context(), t.Integration, err)
	}

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if n, err := strconv.Atoi(remaining); err == nil && n <= constants.RateLimitLowWatermark && n > 0 {
			log.Debug("rate limit low", "integration", t.Integration, "remaining", n)
		}
	}

	if resp.StatusCode < 400 {
		return resp, nil
	}

	body := readExcerpt(resp.Body)
	_ = resp.Body.Close()

	// GitHub signals an exhausted primary quota with 403 and a zero
	// remaining count, and secondary limits with 403 plus Retry-After.
	if resp.StatusCode == http.StatusForbidden &&
		(resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != "") {
		return nil, apperr.RateLimited(t.Integration, retryAfter(resp.Header, time.Now()))
	}
	return nil, apperr.FromStatus(t.Integration, resp.StatusCode, body, retryAfter(resp.Header, time.Now()))
}

func readExcerpt(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, constants.BodyExcerptBytes))
	return strings.TrimSpace(string(b))
}

// retryAfter returns the resume hint from Retry-After (seconds or an HTTP
// date) or X-RateLimit-Reset (unix seconds). It returns -1 when neither is
// usable.
func retryAfter(h http.Header, now time.Time) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := at.Sub(now); d > 0 {
				return d.Round(time.Second)
			}
			return 0
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Unix(unix, 0).Sub(now); d > 0 {
				return d.Round(time.Second)
			}
			return 0
		}
	}
	return -1
}

// safeURL drops userinfo and token-like query parameters for logging.
func safeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.User = nil
	q := c.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "token") || strings.Contains(lk, "key") || strings.Contains(lk, "secret") {
			q.Set(k, "REDACTED")
		}
	}
	c.RawQuery = q.Encode()
	return c.String()
}

// NewHTTPClient returns an http.Client for one integration with a bounded
// timeout and the classifying transport installed over base.
func NewHTTPClient(integration string, base http.RoundTripper, auth Auth, headers map[string]string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &Transport{
			Base:        base,
			Integration: integration,
			Auth:        auth,
			Headers:     headers,
			Registry:    telemetry.Default,
		},
	}
}
