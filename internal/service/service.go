// Package service computes engineer activity summaries. It validates
// input, fetches records from the configured integrations and hands them
// to the aggregators.
package service

import (
	"context"

	"github.com/spiffcs/devpulse/internal/confluence"
	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/ghclient"
	"github.com/spiffcs/devpulse/internal/model"
	"github.com/spiffcs/devpulse/internal/stats"
	"github.com/spiffcs/devpulse/internal/window"
)

// GitHubSource fetches source-control records. *ghclient.Client implements it.
type GitHubSource interface {
	AuthoredPullRequests(ctx context.Context, login string, w window.Window, repos []string, onProgress ghclient.ProgressFunc) ([]model.PullRequest, error)
	ReviewsGiven(ctx context.Context, login string, w window.Window, repos []string, onProgress ghclient.ProgressFunc) ([]model.Review, error)
	Secrets() []string
}

// JiraSource fetches issue-tracker records. *jira.Client implements it.
type JiraSource interface {
	AssignedIssues(ctx context.Context, principal string, w window.Window, extra string) ([]model.Issue, error)
	Secrets() []string
}

// ConfluenceSource fetches documentation records. *confluence.Client implements it.
type ConfluenceSource interface {
	CreatedPages(ctx context.Context, principal string, w window.Window, space string) ([]model.ContentRevision, error)
	UpdatedPages(ctx context.Context, principal string, w window.Window, space string) ([]model.ContentRevision, error)
	Comments(ctx context.Context, principal string, w window.Window, space string, onProgress confluence.ProgressFunc) ([]model.Comment, error)
	Secrets() []string
}

// GitHubInput selects a GitHub computation.
type GitHubInput struct {
	Login    string
	FromDate string
	ToDate   string
	Repos    []string
}

// JiraInput selects a Jira computation.
type JiraInput struct {
	Principal string
	FromDate  string
	ToDate    string
	JQLExtra  string
}

// ConfluenceInput selects a Confluence computation.
type ConfluenceInput struct {
	Principal string
	FromDate  string
	ToDate    string
	SpaceKey  string
}

// Service runs activity computations. It holds no per-call state and is
// safe for concurrent use.
type Service struct {
	github     GitHubSource
	jira       JiraSource
	confluence ConfluenceSource
	resolved   stats.StatusSet
}

// Option configures a Service.
type Option func(*Service)

// WithGitHub enables GitHub computations.
func WithGitHub(src GitHubSource) Option {
	return func(s *Service) { s.github = src }
}

// WithJira enables Jira computations.
func WithJira(src JiraSource) Option {
	return func(s *Service) { s.jira = src }
}

// WithConfluence enables Confluence computations.
func WithConfluence(src ConfluenceSource) Option {
	return func(s *Service) { s.confluence = src }
}

// WithResolvedStatuses overrides the statuses that count as resolved.
func WithResolvedStatuses(labels []string) Option {
	return func(s *Service) { s.resolved = stats.NewStatusSet(labels) }
}

// New creates a Service. Integrations without a source report a
// configuration error when used.
func New(opts ...Option) *Service {
	s := &Service{resolved: stats.NewStatusSet(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether integration has a source.
func (s *Service) Configured(integration string) bool {
	switch integration {
	case constants.IntegrationGitHub:
		return s.github != nil
	case constants.IntegrationJira:
		return s.jira != nil
	case constants.IntegrationConfluence:
		return s.confluence != nil
	}
	return false
}

// Secrets returns every configured credential, for redacting messages.
func (s *Service) Secrets() []string {
	var out []string
	if s.github != nil {
		out = append(out, s.github.Secrets()...)
	}
	if s.jira != nil {
		out = append(out, s.jira.Secrets()...)
	}
	if s.confluence != nil {
		out = append(out, s.confluence.Secrets()...)
	}
	return out
}
