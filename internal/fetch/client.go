package fetch

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/spiffcs/devpulse/internal/apperr"
)

// ClientConfig configures a JSON client for one integration.
type ClientConfig struct {
	Integration string
	BaseURL     string // API root; paths are resolved against it
	Auth        Auth
	Headers     map[string]string
	Timeout     time.Duration
	Base        http.RoundTripper // defaults to http.DefaultTransport
}

// Client issues authenticated GET requests against a JSON API and hands
// the body to a streaming decoder. It holds no per-call state.
type Client struct {
	integration string
	base        *url.URL
	http        *http.Client
	secrets     []string
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, apperr.Configuration(cfg.Integration, "base URL is not set")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apperr.Configuration(cfg.Integration, "base URL %q is not an absolute URL", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	var secrets []string
	if cfg.Auth != nil {
		secrets = cfg.Auth.Secrets()
	}
	return &Client{
		integration: cfg.Integration,
		base:        base,
		http:        NewHTTPClient(cfg.Integration, cfg.Base, cfg.Auth, cfg.Headers, cfg.Timeout),
		secrets:     secrets,
	}, nil
}

// Integration returns the integration name the client reports errors under.
func (c *Client) Integration() string { return c.integration }

// Secrets returns the credential values errors must never contain.
func (c *Client) Secrets() []string { return c.secrets }

// GetJSON fetches path (relative to the base URL) with query and decodes
// the response with decode. Failures are classified into the apperr
// taxonomy; a body that does not decode is reported as Unavailable.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, decode func(d *jx.Decoder) error) error {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return apperr.Validation("invalid request path %q", path)
	}
	u := c.base.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Classify(ctx, c.integration, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := decode(jx.Decode(resp.Body, 4096)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return apperr.Classify(ctx, c.integration, ctxErr)
		}
		return apperr.Unavailable(c.integration, resp.StatusCode, errors.Wrap(err, "decode response"))
	}
	return nil
}
