package stats

import (
	"fmt"
	"sort"

	"github.com/spiffcs/devpulse/internal/envelope"
	"github.com/spiffcs/devpulse/internal/format"
	"github.com/spiffcs/devpulse/internal/model"
	"github.com/spiffcs/devpulse/internal/window"
)

// GitHubSummary is source-control activity for one engineer.
type GitHubSummary struct {
	Login string `json:"login"`
	Period

	Authored            int                     `json:"authored"`
	Merged              int                     `json:"merged"`
	AvgCycleHours       model.Optional[float64] `json:"avg_cycle_hours"`
	AvgCycleDays        model.Optional[float64] `json:"avg_cycle_days"`
	ReviewsGiven        int                     `json:"reviews_given"`
	CommentsWritten     int                     `json:"comments_written"`
	MergeRate           model.Optional[float64] `json:"merge_rate"`
	ReviewParticipation model.Optional[float64] `json:"review_participation"`
	Repositories        []string                `json:"repositories"`
}

// AggregateGitHub summarizes pull requests login authored and reviews login
// gave. Records outside w are ignored.
func AggregateGitHub(login string, w window.Window, prs []model.PullRequest, reviews []model.Review) GitHubSummary {
	s := GitHubSummary{
		Login:        login,
		Period:       periodOf(w),
		Repositories: []string{},
	}

	var cycles []float64
	repos := map[string]struct{}{}
	for _, pr := range prs {
		if !w.Contains(pr.CreatedAt) {
			continue
		}
		s.Authored++
		repos[pr.Repo] = struct{}{}
		if merged, ok := pr.MergedAt.Get(); ok {
			s.Merged++
			cycles = append(cycles, merged.Sub(pr.CreatedAt).Hours())
		}
	}

	for _, r := range reviews {
		if !w.Contains(r.SubmittedAt) {
			continue
		}
		s.ReviewsGiven++
		s.CommentsWritten += r.CommentCount
	}

	s.AvgCycleHours = mean(cycles)
	s.AvgCycleDays = scale(s.AvgCycleHours, 1.0/24)
	s.MergeRate = ratio(s.Merged, s.Authored)
	s.ReviewParticipation = ratio(s.ReviewsGiven, s.Authored)
	for repo := range repos {
		s.Repositories = append(s.Repositories, repo)
	}
	sort.Strings(s.Repositories)
	return s
}

// Title implements envelope.Renderer.
func (s GitHubSummary) Title() string {
	return fmt.Sprintf("GitHub activity for %s (%s..%s, %d days)", s.Login, s.FromDate, s.ToDate, s.PeriodDays)
}

// Fields implements envelope.Renderer.
func (s GitHubSummary) Fields() []envelope.Field {
	fields := []envelope.Field{
		envelope.Value("Pull requests authored", format.Count(s.Authored)),
		envelope.Value("Pull requests merged", format.Count(s.Merged)),
		envelope.Value("Merge rate", format.Percent(s.MergeRate)),
		envelope.Value("Avg cycle time", format.Hours(s.AvgCycleHours)),
		envelope.Value("Reviews given", format.Count(s.ReviewsGiven)),
		envelope.Value("Review comments written", format.Count(s.CommentsWritten)),
		envelope.Value("Review participation", format.Decimal(s.ReviewParticipation)),
	}
	if len(s.Repositories) == 0 {
		return append(fields, envelope.Value("Repositories", "none"))
	}
	fields = append(fields, envelope.Header("Repositories"))
	for _, r := range s.Repositories {
		fields = append(fields, envelope.Item(r))
	}
	return fields
}
