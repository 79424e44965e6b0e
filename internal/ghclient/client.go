package ghclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/fetch"
)

const integration = constants.IntegrationGitHub

// Options configures a Client.
type Options struct {
	Token       string
	BaseURL     string // defaults to https://api.github.com/
	Timeout     time.Duration
	ItemCap     int
	Concurrency int
	Transport   http.RoundTripper // base transport, mainly for tests
}

// Client wraps the GitHub API client
type Client struct {
	client      *gh.Client
	itemCap     int
	concurrency int
	// token is intentionally unexported. NEVER add String(), MarshalJSON(),
	// or any method that could expose this value in logs or serialized output.
	token string
}

// NewClient creates a new GitHub client using a personal access token.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, apperr.Configuration(integration, "GITHUB_TOKEN is not set")
	}

	if opts.Transport != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: opts.Transport})
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: opts.Token},
	)
	tc := oauth2.NewClient(ctx, ts)

	// Classify, log and time every request above the oauth2 transport.
	httpClient := fetch.NewHTTPClient(integration, tc.Transport, nil, map[string]string{
		"Accept":               constants.GitHubAcceptHeader,
		"X-GitHub-Api-Version": constants.GitHubAPIVersion,
	}, opts.Timeout)

	client := gh.NewClient(httpClient)
	if opts.BaseURL != "" && opts.BaseURL != constants.DefaultGitHubAPIURL {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil || u.Host == "" {
			return nil, apperr.Configuration(integration, "GITHUB_API_URL %q is not an absolute URL", opts.BaseURL)
		}
		client.BaseURL = u
	}

	itemCap := opts.ItemCap
	if itemCap <= 0 {
		itemCap = constants.DefaultItemCap
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrency
	}

	return &Client{
		client:      client,
		itemCap:     itemCap,
		concurrency: concurrency,
		token:       opts.Token,
	}, nil
}

// Secrets returns the credential values errors must never contain.
func (c *Client) Secrets() []string {
	return []string{c.token}
}

// AuthenticatedUser returns the authenticated user's login
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", classify(ctx, err)
	}
	return user.GetLogin(), nil
}

// RateLimits fetches the current GitHub API rate limit status.
func (c *Client) RateLimits(ctx context.Context) (*gh.RateLimits, error) {
	limits, _, err := c.client.RateLimit.Get(ctx)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return limits, nil
}

// classify maps go-github's own error types onto the taxonomy. Errors
// raised by the transport are already typed and pass through.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var typed *apperr.Error
	if errors.As(err, &typed) {
		return typed
	}
	var rl *gh.RateLimitError
	if errors.As(err, &rl) {
		wait := time.Duration(-1)
		if !rl.Rate.Reset.Time.IsZero() {
			wait = time.Until(rl.Rate.Reset.Time).Round(time.Second)
			if wait < 0 {
				wait = 0
			}
		}
		return apperr.RateLimited(integration, wait)
	}
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		wait := time.Duration(-1)
		if abuse.RetryAfter != nil {
			wait = *abuse.RetryAfter
		}
		return apperr.RateLimited(integration, wait)
	}
	var resp *gh.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		if e := apperr.FromStatus(integration, resp.Response.StatusCode, resp.Message, -1); e != nil {
			return e
		}
	}
	return apperr.Classify(ctx, integration, err)
}
