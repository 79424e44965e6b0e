package stats

import (
	"fmt"
	"strings"

	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/envelope"
	"github.com/spiffcs/devpulse/internal/format"
	"github.com/spiffcs/devpulse/internal/model"
	"github.com/spiffcs/devpulse/internal/window"
)

// unknownLabel buckets issues missing a type or priority.
const unknownLabel = "Unknown"

// StatusSet is a closed set of status labels, matched case-insensitively
// on trimmed labels.
type StatusSet struct {
	labels map[string]struct{}
}

// NewStatusSet builds a set from labels. An empty list yields
// constants.DefaultResolvedStatuses.
func NewStatusSet(labels []string) StatusSet {
	if len(labels) == 0 {
		labels = constants.DefaultResolvedStatuses
	}
	s := StatusSet{labels: make(map[string]struct{}, len(labels))}
	for _, l := range labels {
		if l = normalizeStatus(l); l != "" {
			s.labels[l] = struct{}{}
		}
	}
	return s
}

// Contains reports whether label is in the set.
func (s StatusSet) Contains(label string) bool {
	_, ok := s.labels[normalizeStatus(label)]
	return ok
}

func normalizeStatus(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// JiraSummary is issue-tracker activity for one assignee.
type JiraSummary struct {
	Principal string `json:"user"`
	Period

	Assigned         int                     `json:"assigned"`
	Resolved         int                     `json:"resolved"`
	Reopened         int                     `json:"reopened"`
	AvgLeadTimeHours model.Optional[float64] `json:"avg_lead_time_hours"`
	AvgLeadTimeDays  model.Optional[float64] `json:"avg_lead_time_days"`
	ResolutionRate   model.Optional[float64] `json:"resolution_rate"`
	QualityScore     model.Optional[float64] `json:"quality_score"`
	FirstPassRate    model.Optional[float64] `json:"first_pass_rate"`
	IssueTypes       map[string]int          `json:"issue_types"`
	Priorities       map[string]int          `json:"priorities"`
}

// issueOutcome is what one issue's changelog says about it.
type issueOutcome struct {
	resolved  bool
	leadHours float64
	hasLead   bool
	reopened  bool
}

// outcomeOf scans a chronological changelog. The first transition into a
// resolved status inside w resolves the issue. Any later transition into
// a status outside the resolved set reopens it, an empty label included.
func outcomeOf(issue model.Issue, w window.Window, resolved StatusSet) issueOutcome {
	var (
		out     issueOutcome
		wasDone bool
	)
	for _, t := range issue.Changelog {
		toResolved := resolved.Contains(t.To)
		if toResolved {
			if !out.resolved && w.Contains(t.At) {
				out.resolved = true
				if lead := t.At.Sub(issue.CreatedAt).Hours(); lead >= 0 {
					out.leadHours, out.hasLead = lead, true
				}
			}
			wasDone = true
			continue
		}
		if wasDone {
			out.reopened = true
		}
	}
	return out
}

// AggregateJira summarizes issues assigned to principal and created
// inside w.
func AggregateJira(principal string, w window.Window, issues []model.Issue, resolved StatusSet) JiraSummary {
	s := JiraSummary{
		Principal:  principal,
		Period:     periodOf(w),
		IssueTypes: map[string]int{},
		Priorities: map[string]int{},
	}

	var (
		leads            []float64
		reopenedResolved int
	)
	for _, issue := range issues {
		if !w.Contains(issue.CreatedAt) {
			continue
		}
		s.Assigned++
		s.IssueTypes[issue.Type.OrElse(unknownLabel)]++
		s.Priorities[issue.Priority.OrElse(unknownLabel)]++

		out := outcomeOf(issue, w, resolved)
		if out.reopened {
			s.Reopened++
		}
		if !out.resolved {
			continue
		}
		s.Resolved++
		if out.hasLead {
			leads = append(leads, out.leadHours)
		}
		if out.reopened {
			reopenedResolved++
		}
	}

	s.AvgLeadTimeHours = mean(leads)
	s.AvgLeadTimeDays = scale(s.AvgLeadTimeHours, 1.0/24)
	s.ResolutionRate = ratio(s.Resolved, s.Assigned)
	s.QualityScore = ratio(s.Resolved, s.Assigned)
	s.FirstPassRate = ratio(s.Resolved-reopenedResolved, s.Resolved)
	return s
}

// Title implements envelope.Renderer.
func (s JiraSummary) Title() string {
	return fmt.Sprintf("Jira activity for %s (%s..%s, %d days)", s.Principal, s.FromDate, s.ToDate, s.PeriodDays)
}

// Fields implements envelope.Renderer.
func (s JiraSummary) Fields() []envelope.Field {
	fields := []envelope.Field{
		envelope.Value("Issues assigned", format.Count(s.Assigned)),
		envelope.Value("Issues resolved", format.Count(s.Resolved)),
		envelope.Value("Issues reopened", format.Count(s.Reopened)),
		envelope.Value("Resolution rate", format.Percent(s.ResolutionRate)),
		envelope.Value("Avg lead time", format.Hours(s.AvgLeadTimeHours)),
		envelope.Value("Quality score", format.Percent(s.QualityScore)),
		envelope.Value("First-pass rate", format.Percent(s.FirstPassRate)),
	}
	fields = append(fields, distribution("Issue types", s.IssueTypes)...)
	return append(fields, distribution("Priorities", s.Priorities)...)
}

func distribution(title string, counts map[string]int) []envelope.Field {
	if len(counts) == 0 {
		return []envelope.Field{envelope.Value(title, "none")}
	}
	fields := []envelope.Field{envelope.Header(title)}
	for _, k := range sortedKeys(counts) {
		fields = append(fields, envelope.Nested(k, format.Count(counts[k])))
	}
	return fields
}
