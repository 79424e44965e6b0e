package ghclient

import (
	"context"
	"strings"
	"sync/atomic"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/sync/errgroup"

	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/fetch"
	"github.com/spiffcs/devpulse/internal/log"
	"github.com/spiffcs/devpulse/internal/model"
	"github.com/spiffcs/devpulse/internal/window"
)

// ProgressFunc receives fan-out progress. It may be called concurrently.
type ProgressFunc func(done, total int)

func report(fn ProgressFunc, done *atomic.Int32, total int) {
	n := done.Add(1)
	if fn != nil {
		fn(int(n), total)
	}
}

func splitRepo(repo string) (owner, name string) {
	owner, name, _ = strings.Cut(repo, "/")
	return owner, name
}

// searchIssues runs an issue search and walks its pages up to the item cap.
func (c *Client) searchIssues(ctx context.Context, query string) ([]*gh.Issue, error) {
	perPage := fetch.PageSize(c.itemCap, constants.GitHubMaxPageSize)
	return fetch.All(ctx, c.itemCap, 1, func(ctx context.Context, page int) (fetch.Page[*gh.Issue], error) {
		opts := &gh.SearchOptions{
			Sort:  "created",
			Order: "asc",
			ListOptions: gh.ListOptions{
				Page:    page,
				PerPage: perPage,
			},
		}
		result, resp, err := c.client.Search.Issues(ctx, query, opts)
		if err != nil {
			return fetch.Page[*gh.Issue]{}, classify(ctx, err)
		}
		return fetch.Page[*gh.Issue]{
			Items: result.Issues,
			Next:  resp.NextPage,
			More:  resp.NextPage != 0,
		}, nil
	})
}

// AuthoredPullRequests returns the pull requests login opened inside w.
// Closed pull requests are looked up individually, with bounded
// concurrency, to learn whether and when they merged.
func (c *Client) AuthoredPullRequests(ctx context.Context, login string, w window.Window, repos []string, onProgress ProgressFunc) ([]model.PullRequest, error) {
	query, err := AuthoredQuery(login, w, repos)
	if err != nil {
		return nil, err
	}
	log.Trace("searching authored pull requests", "query", query)

	hits, err := c.searchIssues(ctx, query)
	if err != nil {
		return nil, err
	}

	prs := make([]model.PullRequest, 0, len(hits))
	for _, hit := range hits {
		if pr, ok := pullRequestFromSearch(hit); ok {
			prs = append(prs, pr)
		}
	}

	// Only closed pull requests can have merged.
	var closed []int
	for i := range prs {
		if prs[i].State == "closed" {
			closed = append(closed, i)
		}
	}
	log.Debug("authored pull requests", "login", login, "count", len(prs), "closed", len(closed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	var done atomic.Int32
	for _, idx := range closed {
		g.Go(func() error {
			pr := &prs[idx]
			owner, name := splitRepo(pr.Repo)
			detail, _, err := c.client.PullRequests.Get(gctx, owner, name, pr.Number)
			if err != nil {
				return classify(gctx, err)
			}
			applyDetail(pr, detail)
			report(onProgress, &done, len(closed))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prs, nil
}

// ReviewsGiven returns the reviews login submitted inside w, each with the
// number of review comments login attached to it.
func (c *Client) ReviewsGiven(ctx context.Context, login string, w window.Window, repos []string, onProgress ProgressFunc) ([]model.Review, error) {
	query, err := ReviewedQuery(login, w, repos)
	if err != nil {
		return nil, err
	}
	log.Trace("searching reviewed pull requests", "query", query)

	hits, err := c.searchIssues(ctx, query)
	if err != nil {
		return nil, err
	}

	var targets []model.PullRequest
	for _, hit := range hits {
		if pr, ok := pullRequestFromSearch(hit); ok {
			targets = append(targets, pr)
		}
	}

	perPR := make([][]model.Review, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	var done atomic.Int32
	for i, t := range targets {
		g.Go(func() error {
			reviews, err := c.reviewsOn(gctx, login, w, t.Repo, t.Number)
			if err != nil {
				return err
			}
			perPR[i] = reviews
			report(onProgress, &done, len(targets))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Flatten in search order so output does not depend on scheduling.
	var reviews []model.Review
	for _, rs := range perPR {
		reviews = append(reviews, rs...)
	}
	log.Debug("reviews given", "login", login, "pull_requests", len(targets), "reviews", len(reviews))
	return reviews, nil
}

// reviewsOn lists one pull request's reviews, keeps the ones login
// submitted inside w, and counts login's comments per kept review.
func (c *Client) reviewsOn(ctx context.Context, login string, w window.Window, repo string, number int) ([]model.Review, error) {
	owner, name := splitRepo(repo)
	perPage := fetch.PageSize(c.itemCap, constants.GitHubMaxPageSize)

	raw, err := fetch.All(ctx, c.itemCap, 1, func(ctx context.Context, page int) (fetch.Page[*gh.PullRequestReview], error) {
		rs, resp, err := c.client.PullRequests.ListReviews(ctx, owner, name, number, &gh.ListOptions{Page: page, PerPage: perPage})
		if err != nil {
			return fetch.Page[*gh.PullRequestReview]{}, classify(ctx, err)
		}
		return fetch.Page[*gh.PullRequestReview]{Items: rs, Next: resp.NextPage, More: resp.NextPage != 0}, nil
	})
	if err != nil {
		return nil, err
	}

	var mine []model.Review
	for _, r := range raw {
		rv, ok := reviewFromAPI(repo, number, r)
		if ok && sameLogin(rv.Author, login) && w.Contains(rv.SubmittedAt) {
			mine = append(mine, rv)
		}
	}
	if len(mine) == 0 {
		return nil, nil
	}

	comments, err := fetch.All(ctx, c.itemCap, 1, func(ctx context.Context, page int) (fetch.Page[*gh.PullRequestComment], error) {
		opts := &gh.PullRequestListCommentsOptions{ListOptions: gh.ListOptions{Page: page, PerPage: perPage}}
		cs, resp, err := c.client.PullRequests.ListComments(ctx, owner, name, number, opts)
		if err != nil {
			return fetch.Page[*gh.PullRequestComment]{}, classify(ctx, err)
		}
		return fetch.Page[*gh.PullRequestComment]{Items: cs, Next: resp.NextPage, More: resp.NextPage != 0}, nil
	})
	if err != nil {
		return nil, err
	}

	counts := commentsPerReview(comments, login)
	for i := range mine {
		mine[i].CommentCount = counts[mine[i].ID]
	}
	return mine, nil
}
