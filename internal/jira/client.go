// Package jira queries Jira Cloud issue search and normalizes issues and
// their status changelog into model records.
package jira

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/fetch"
	"github.com/spiffcs/devpulse/internal/log"
	"github.com/spiffcs/devpulse/internal/model"
	"github.com/spiffcs/devpulse/internal/window"
)

const integration = constants.IntegrationJira

// Options configures a Client. BearerToken, when set, takes precedence over
// Email and APIToken.
type Options struct {
	BaseURL     string // site root, e.g. https://acme.atlassian.net
	Email       string
	APIToken    string
	BearerToken string
	Timeout     time.Duration
	ItemCap     int
	Concurrency int
	Transport   http.RoundTripper
}

// Client searches Jira issues.
type Client struct {
	api         *fetch.Client
	itemCap     int
	concurrency int
}

// NewClient builds a Client for the REST v3 API under opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	var auth fetch.Auth
	switch {
	case opts.BearerToken != "":
		auth = fetch.Bearer(opts.BearerToken)
	case opts.Email != "" && opts.APIToken != "":
		auth = fetch.Basic(opts.Email, opts.APIToken)
	default:
		return nil, apperr.Configuration(integration, "JIRA_EMAIL and JIRA_API_TOKEN (or JIRA_BEARER_TOKEN) are not set")
	}
	if opts.BaseURL == "" {
		return nil, apperr.Configuration(integration, "JIRA_BASE_URL is not set")
	}

	api, err := fetch.NewClient(fetch.ClientConfig{
		Integration: integration,
		BaseURL:     strings.TrimRight(opts.BaseURL, "/") + "/rest/api/3/",
		Auth:        auth,
		Timeout:     opts.Timeout,
		Base:        opts.Transport,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{api: api, itemCap: opts.ItemCap, concurrency: opts.Concurrency}
	if c.itemCap <= 0 {
		c.itemCap = constants.DefaultItemCap
	}
	if c.concurrency <= 0 {
		c.concurrency = constants.DefaultConcurrency
	}
	return c, nil
}

// Secrets returns the credential values errors must never contain.
func (c *Client) Secrets() []string {
	return c.api.Secrets()
}

// AssignedIssues returns issues assigned to principal and created inside w,
// with their changelogs, oldest first.
func (c *Client) AssignedIssues(ctx context.Context, principal string, w window.Window, extra string) ([]model.Issue, error) {
	jql, err := AssignedJQL(principal, w, extra)
	if err != nil {
		return nil, err
	}
	log.Trace("searching jira issues", "jql", jql)

	pageSize := fetch.PageSize(c.itemCap, constants.JiraMaxPageSize)
	records, err := fetch.All(ctx, c.itemCap, 0, func(ctx context.Context, startAt int) (fetch.Page[issueRecord], error) {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(pageSize))
		q.Set("expand", "changelog")

		var page searchPage
		if err := c.api.GetJSON(ctx, "search", q, func(d *jx.Decoder) error {
			var err error
			page, err = decodeSearchPage(d)
			return err
		}); err != nil {
			return fetch.Page[issueRecord]{}, err
		}

		next := startAt + page.Returned
		return fetch.Page[issueRecord]{
			Items: page.Issues,
			Next:  next,
			More:  page.Returned > 0 && next < page.Total,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	issues, err := c.completeChangelogs(ctx, records)
	if err != nil {
		return nil, err
	}
	log.Debug("jira issues", "count", len(issues))
	return issues, nil
}

// completeChangelogs replaces the changelog of every issue whose embedded
// changelog was cut short with the full one, with bounded concurrency.
// Any failure fails the call.
func (c *Client) completeChangelogs(ctx context.Context, records []issueRecord) ([]model.Issue, error) {
	issues := make([]model.Issue, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	var refetched atomic.Int32
	for i, rec := range records {
		issues[i] = rec.Issue
		if !rec.partialChangelog {
			continue
		}
		g.Go(func() error {
			changelog, err := c.Changelog(gctx, rec.Key)
			if err != nil {
				return err
			}
			issues[i].Changelog = changelog
			refetched.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if n := refetched.Load(); n > 0 {
		log.Debug("jira changelogs refetched", "count", n)
	}
	return issues, nil
}

// Changelog returns every status transition of the issue key, oldest first.
func (c *Client) Changelog(ctx context.Context, key string) ([]model.StatusTransition, error) {
	var histories []history
	_, err := fetch.All(ctx, constants.JiraChangelogCap, 0, func(ctx context.Context, startAt int) (fetch.Page[struct{}], error) {
		q := url.Values{}
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(constants.JiraMaxPageSize))

		var page changelogPage
		if err := c.api.GetJSON(ctx, "issue/"+url.PathEscape(key)+"/changelog", q, func(d *jx.Decoder) error {
			var err error
			page, err = decodeChangelog(d, "values")
			return err
		}); err != nil {
			return fetch.Page[struct{}]{}, err
		}
		histories = append(histories, page.histories...)

		next := startAt + page.returned
		return fetch.Page[struct{}]{
			Items: make([]struct{}, page.returned),
			Next:  next,
			More:  page.returned > 0 && next < page.total,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return transitions(histories), nil
}
