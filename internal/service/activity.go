package service

import (
	"context"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/confluence"
	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/ghclient"
	"github.com/spiffcs/devpulse/internal/jira"
	"github.com/spiffcs/devpulse/internal/log"
	"github.com/spiffcs/devpulse/internal/model"
	"github.com/spiffcs/devpulse/internal/stats"
	"github.com/spiffcs/devpulse/internal/telemetry"
	"github.com/spiffcs/devpulse/internal/window"
)

func notConfigured(integration string) error {
	return apperr.Configuration(integration, "%s is not configured", integration)
}

// validate runs check and reports the validate stage. Nothing reaches the
// network until it passes.
func validate(r *reporter, check func() error) error {
	r.start(StageValidate)
	if err := check(); err != nil {
		r.fail(StageValidate, err)
		return err
	}
	r.complete(StageValidate, 0)
	return nil
}

func fetch(ctx context.Context, integration string, r *reporter, sources []source) error {
	r.start(StageFetch)
	if err := fetchAll(ctx, sources, r); err != nil {
		err = apperr.Classify(ctx, integration, err)
		r.fail(StageFetch, err)
		return err
	}
	return nil
}

// GitHubActivity summarizes the pull requests a user authored and the
// reviews they gave inside the window.
func (s *Service) GitHubActivity(ctx context.Context, in GitHubInput, progress ProgressFunc) (summary stats.GitHubSummary, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.github_activity", "login", in.Login)
	defer func() { telemetry.EndSpan(span, err) }()
	r := newReporter(progress)

	var w window.Window
	if err := validate(r, func() error {
		var err error
		if w, err = window.Parse(in.FromDate, in.ToDate); err != nil {
			return err
		}
		if err := ghclient.ValidateLogin(in.Login); err != nil {
			return err
		}
		if err := ghclient.ValidateRepos(in.Repos); err != nil {
			return err
		}
		if s.github == nil {
			return notConfigured(constants.IntegrationGitHub)
		}
		return nil
	}); err != nil {
		return stats.GitHubSummary{}, err
	}

	var (
		prs     []model.PullRequest
		reviews []model.Review
	)
	if err := fetch(ctx, constants.IntegrationGitHub, r, []source{
		{name: "authored", run: func(ctx context.Context, onItem func(done, total int)) error {
			var err error
			prs, err = s.github.AuthoredPullRequests(ctx, in.Login, w, in.Repos, onItem)
			return err
		}},
		{name: "reviews", run: func(ctx context.Context, onItem func(done, total int)) error {
			var err error
			reviews, err = s.github.ReviewsGiven(ctx, in.Login, w, in.Repos, onItem)
			return err
		}},
	}); err != nil {
		return stats.GitHubSummary{}, err
	}
	r.complete(StageFetch, len(prs)+len(reviews))
	r.complete(StageDetails, len(prs)+len(reviews))

	r.start(StageAggregate)
	summary = stats.AggregateGitHub(in.Login, w, prs, reviews)
	r.complete(StageAggregate, summary.Authored)

	log.Info("github activity computed", "login", in.Login, "window", w, "authored", summary.Authored, "reviews", summary.ReviewsGiven)
	return summary, nil
}

// JiraActivity summarizes the issues assigned to a user and created inside
// the window.
func (s *Service) JiraActivity(ctx context.Context, in JiraInput, progress ProgressFunc) (summary stats.JiraSummary, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.jira_activity")
	defer func() { telemetry.EndSpan(span, err) }()
	r := newReporter(progress)

	var w window.Window
	if err := validate(r, func() error {
		var err error
		if w, err = window.Parse(in.FromDate, in.ToDate); err != nil {
			return err
		}
		if _, err := jira.AssignedJQL(in.Principal, w, in.JQLExtra); err != nil {
			return err
		}
		if s.jira == nil {
			return notConfigured(constants.IntegrationJira)
		}
		return nil
	}); err != nil {
		return stats.JiraSummary{}, err
	}

	var issues []model.Issue
	if err := fetch(ctx, constants.IntegrationJira, r, []source{
		{name: "assigned", run: func(ctx context.Context, _ func(done, total int)) error {
			var err error
			issues, err = s.jira.AssignedIssues(ctx, in.Principal, w, in.JQLExtra)
			return err
		}},
	}); err != nil {
		return stats.JiraSummary{}, err
	}
	r.complete(StageFetch, len(issues))
	r.skip(StageDetails)

	r.start(StageAggregate)
	summary = stats.AggregateJira(in.Principal, w, issues, s.resolved)
	r.complete(StageAggregate, summary.Assigned)

	log.Info("jira activity computed", "window", w, "assigned", summary.Assigned, "resolved", summary.Resolved)
	return summary, nil
}

// ConfluenceActivity summarizes the pages a user created or updated and the
// comments they wrote inside the window.
func (s *Service) ConfluenceActivity(ctx context.Context, in ConfluenceInput, progress ProgressFunc) (summary stats.ConfluenceSummary, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.confluence_activity", "space", in.SpaceKey)
	defer func() { telemetry.EndSpan(span, err) }()
	r := newReporter(progress)

	var w window.Window
	if err := validate(r, func() error {
		var err error
		if w, err = window.Parse(in.FromDate, in.ToDate); err != nil {
			return err
		}
		if _, err := confluence.CreatedCQL(in.Principal, w, in.SpaceKey); err != nil {
			return err
		}
		if s.confluence == nil {
			return notConfigured(constants.IntegrationConfluence)
		}
		return nil
	}); err != nil {
		return stats.ConfluenceSummary{}, err
	}

	var (
		created, updated []model.ContentRevision
		comments         []model.Comment
	)
	if err := fetch(ctx, constants.IntegrationConfluence, r, []source{
		{name: "created", run: func(ctx context.Context, _ func(done, total int)) error {
			var err error
			created, err = s.confluence.CreatedPages(ctx, in.Principal, w, in.SpaceKey)
			return err
		}},
		{name: "updated", run: func(ctx context.Context, _ func(done, total int)) error {
			var err error
			updated, err = s.confluence.UpdatedPages(ctx, in.Principal, w, in.SpaceKey)
			return err
		}},
		{name: "comments", run: func(ctx context.Context, onItem func(done, total int)) error {
			var err error
			comments, err = s.confluence.Comments(ctx, in.Principal, w, in.SpaceKey, onItem)
			return err
		}},
	}); err != nil {
		return stats.ConfluenceSummary{}, err
	}
	r.complete(StageFetch, len(created)+len(updated)+len(comments))
	r.complete(StageDetails, len(comments))

	r.start(StageAggregate)
	revisions := append(append([]model.ContentRevision{}, created...), updated...)
	summary = stats.AggregateConfluence(in.Principal, w, revisions, comments, in.SpaceKey)
	r.complete(StageAggregate, summary.TotalContentActivity)

	log.Info("confluence activity computed", "window", w, "created", summary.PagesCreated, "updated", summary.PagesUpdated, "comments", summary.CommentsWritten)
	return summary, nil
}
