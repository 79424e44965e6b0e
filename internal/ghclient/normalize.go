package ghclient

import (
	"strings"

	gh "github.com/google/go-github/v57/github"

	"github.com/spiffcs/devpulse/internal/model"
)

// repoFromURL extracts owner/name from a repository API URL such as
// https://api.github.com/repos/owner/name.
func repoFromURL(repositoryURL string) (string, bool) {
	i := strings.Index(repositoryURL, "/repos/")
	if i < 0 {
		return "", false
	}
	parts := strings.Split(strings.Trim(repositoryURL[i+len("/repos/"):], "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "/" + parts[1], true
}

// pullRequestFromSearch normalizes a search hit. Hits that are not pull
// requests or lack a repository are skipped. The merge timestamp is not
// part of the hit and is filled in by applyDetail.
func pullRequestFromSearch(issue *gh.Issue) (model.PullRequest, bool) {
	if issue == nil || !issue.IsPullRequest() || issue.GetNumber() == 0 {
		return model.PullRequest{}, false
	}
	repo, ok := repoFromURL(issue.GetRepositoryURL())
	if !ok {
		return model.PullRequest{}, false
	}
	pr := model.PullRequest{
		ID:     issue.GetID(),
		Number: issue.GetNumber(),
		Repo:   repo,
		Author: issue.GetUser().GetLogin(),
		State:  issue.GetState(),
	}
	if issue.CreatedAt != nil {
		pr.CreatedAt = issue.CreatedAt.Time.UTC()
	}
	return pr, true
}

// applyDetail fills the merge timestamp from the pull request resource.
func applyDetail(pr *model.PullRequest, detail *gh.PullRequest) {
	if detail == nil {
		return
	}
	if detail.MergedAt != nil && !detail.MergedAt.Time.IsZero() {
		pr.MergedAt = model.Some(detail.MergedAt.Time.UTC())
	}
	if pr.CreatedAt.IsZero() && detail.CreatedAt != nil {
		pr.CreatedAt = detail.CreatedAt.Time.UTC()
	}
}

// reviewFromAPI normalizes a review. Reviews without a submission time
// (pending drafts) are skipped.
func reviewFromAPI(repo string, number int, r *gh.PullRequestReview) (model.Review, bool) {
	if r == nil || r.SubmittedAt == nil || r.SubmittedAt.Time.IsZero() {
		return model.Review{}, false
	}
	return model.Review{
		ID:          r.GetID(),
		Repo:        repo,
		PullNumber:  number,
		Author:      r.GetUser().GetLogin(),
		State:       r.GetState(),
		SubmittedAt: r.SubmittedAt.Time.UTC(),
	}, true
}

// commentsPerReview counts the review comments login wrote, keyed by the
// review they belong to.
func commentsPerReview(comments []*gh.PullRequestComment, login string) map[int64]int {
	counts := make(map[int64]int)
	for _, c := range comments {
		if c == nil || !sameLogin(c.GetUser().GetLogin(), login) {
			continue
		}
		if id := c.GetPullRequestReviewID(); id != 0 {
			counts[id]++
		}
	}
	return counts
}

func sameLogin(a, b string) bool {
	return strings.EqualFold(a, b)
}
