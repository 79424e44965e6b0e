// Package confluence queries Confluence content search and normalizes
// pages and comments into model records.
package confluence

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

const integration = constants.IntegrationConfluence

// Options configures a Client. BearerToken, when set, takes precedence over
// Email and APIToken.
type Options struct {
	BaseURL     string // wiki root, e.g. https://acme.atlassian.net/wiki
	Email       string
	APIToken    string
	BearerToken string
	Timeout     time.Duration
	ItemCap     int
	Concurrency int
	Transport   http.RoundTripper
}

// Client searches Confluence content.
type Client struct {
	api         *fetch.Client
	itemCap     int
	concurrency int
}

// ProgressFunc receives comment fan-out progress. It may be called concurrently.
type ProgressFunc func(done, total int)

// NewClient builds a Client for the REST API under opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	var auth fetch.Auth
	switch {
	case opts.BearerToken != "":
		auth = fetch.Bearer(opts.BearerToken)
	case opts.Email != "" && opts.APIToken != "":
		auth = fetch.Basic(opts.Email, opts.APIToken)
	default:
		return nil, apperr.Configuration(integration, "CONFLUENCE_EMAIL and CONFLUENCE_API_TOKEN are not set")
	}
	if opts.BaseURL == "" {
		return nil, apperr.Configuration(integration, "CONFLUENCE_BASE_URL is not set")
	}

	api, err := fetch.NewClient(fetch.ClientConfig{
		Integration: integration,
		BaseURL:     strings.TrimRight(opts.BaseURL, "/") + "/rest/api/",
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

// list walks an offset-paged results listing at path.
func (c *Client) list(ctx context.Context, path string, params url.Values) ([]content, error) {
	pageSize := fetch.PageSize(c.itemCap, constants.ConfluenceMaxPageSize)
	return fetch.All(ctx, c.itemCap, 0, func(ctx context.Context, start int) (fetch.Page[content], error) {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("start", strconv.Itoa(start))
		q.Set("limit", strconv.Itoa(pageSize))

		var page resultsPage
		if err := c.api.GetJSON(ctx, path, q, func(d *jx.Decoder) error {
			var err error
			page, err = decodeResults(d)
			return err
		}); err != nil {
			return fetch.Page[content]{}, err
		}
		return fetch.Page[content]{
			Items: page.Items,
			Next:  start + page.Returned,
			More:  page.Returned > 0 && (page.HasNext || page.Returned >= pageSize),
		}, nil
	})
}

func (c *Client) search(ctx context.Context, cql, expand string) ([]content, error) {
	log.Trace("searching confluence content", "cql", cql)
	return c.list(ctx, "content/search", url.Values{
		"cql":    {cql},
		"expand": {expand},
	})
}

// CreatedPages returns the pages principal created inside w.
func (c *Client) CreatedPages(ctx context.Context, principal string, w window.Window, space string) ([]model.ContentRevision, error) {
	cql, err := CreatedCQL(principal, w, space)
	if err != nil {
		return nil, err
	}
	results, err := c.search(ctx, cql, "version,space,history")
	if err != nil {
		return nil, err
	}

	var pages []model.ContentRevision
	for _, r := range results {
		if rev, ok := createdRevision(r); ok {
			pages = append(pages, rev)
		}
	}
	log.Debug("confluence pages created", "count", len(pages))
	return pages, nil
}

// UpdatedPages returns the pages whose latest revision inside w is by
// principal.
func (c *Client) UpdatedPages(ctx context.Context, principal string, w window.Window, space string) ([]model.ContentRevision, error) {
	if strings.TrimSpace(principal) == "" {
		return nil, apperr.Validation("user_email_or_account_id is required")
	}
	cql, err := ModifiedCQL(w, space)
	if err != nil {
		return nil, err
	}
	results, err := c.search(ctx, cql, "version,space,history.lastUpdated")
	if err != nil {
		return nil, err
	}

	var pages []model.ContentRevision
	for _, r := range results {
		by := r.UpdatedBy
		if r.UpdatedWhen.IsZero() {
			by = r.VersionBy
		}
		if !by.is(principal) {
			continue
		}
		if rev, ok := updatedRevision(r); ok {
			pages = append(pages, rev)
		}
	}
	log.Debug("confluence pages updated", "count", len(pages), "candidates", len(results))
	return pages, nil
}

// Comments returns comments principal wrote inside w on pages modified
// inside w. Each candidate page's comments are listed with bounded
// concurrency; any failure fails the call.
func (c *Client) Comments(ctx context.Context, principal string, w window.Window, space string, onProgress ProgressFunc) ([]model.Comment, error) {
	if strings.TrimSpace(principal) == "" {
		return nil, apperr.Validation("user_email_or_account_id is required")
	}
	cql, err := ModifiedCQL(w, space)
	if err != nil {
		return nil, err
	}
	pages, err := c.search(ctx, cql, "space,version")
	if err != nil {
		return nil, err
	}

	perPage := make([][]model.Comment, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	var done atomic.Int32
	for i, page := range pages {
		g.Go(func() error {
			raw, err := c.list(gctx, "content/"+url.PathEscape(page.ID)+"/child/comment", url.Values{
				"expand": {"version"},
			})
			if err != nil {
				return err
			}
			for _, rc := range raw {
				if !rc.VersionBy.is(principal) || !w.Contains(rc.VersionWhen) {
					continue
				}
				perPage[i] = append(perPage[i], commentRecord(rc, page))
			}
			n := done.Add(1)
			if onProgress != nil {
				onProgress(int(n), len(pages))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var comments []model.Comment
	for _, cs := range perPage {
		comments = append(comments, cs...)
	}
	log.Debug("confluence comments", "count", len(comments), "pages", len(pages))
	return comments, nil
}
