package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spiffcs/devpulse/internal/envelope"
	"github.com/spiffcs/devpulse/internal/format"
	"github.com/spiffcs/devpulse/internal/model"
	"github.com/spiffcs/devpulse/internal/window"
)

// SpaceActivity counts pages per space.
type SpaceActivity struct {
	Key     string `json:"key"`
	Name    string `json:"name,omitempty"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// ConfluenceSummary is documentation activity for one author.
type ConfluenceSummary struct {
	Principal   string                 `json:"user"`
	SpaceFilter model.Optional[string] `json:"space_filter"`
	Period

	PagesCreated         int                     `json:"pages_created"`
	PagesUpdated         int                     `json:"pages_updated"`
	CommentsWritten      int                     `json:"comments_written"`
	TotalContentActivity int                     `json:"total_content_activity"`
	CreationRate         float64                 `json:"creation_rate"`
	UpdateRate           float64                 `json:"update_rate"`
	CommentRate          float64                 `json:"comment_rate"`
	EngagementRatio      model.Optional[float64] `json:"engagement_ratio"`
	Spaces               []SpaceActivity         `json:"spaces"`
}

// AggregateConfluence summarizes page revisions and comments inside w,
// optionally restricted to one space. A page counted as created is never
// also counted as updated; duplicates by id are counted once.
func AggregateConfluence(principal string, w window.Window, revisions []model.ContentRevision, comments []model.Comment, space string) ConfluenceSummary {
	space = strings.TrimSpace(space)
	s := ConfluenceSummary{
		Principal: principal,
		Period:    periodOf(w),
		Spaces:    []SpaceActivity{},
	}
	if space != "" {
		s.SpaceFilter = model.Some(space)
	}
	inSpace := func(key string) bool {
		return space == "" || strings.EqualFold(key, space)
	}

	spaces := map[string]*SpaceActivity{}
	bump := func(rev model.ContentRevision) *SpaceActivity {
		key := rev.SpaceKey
		if key == "" {
			key = unknownLabel
		}
		sa, ok := spaces[key]
		if !ok {
			sa = &SpaceActivity{Key: key}
			spaces[key] = sa
		}
		if sa.Name == "" {
			sa.Name = rev.SpaceName
		}
		return sa
	}

	created := map[string]bool{}
	for _, rev := range revisions {
		if !rev.IsInitialVersion || created[rev.ID] || !w.Contains(rev.CreatedAt) || !inSpace(rev.SpaceKey) {
			continue
		}
		created[rev.ID] = true
		s.PagesCreated++
		bump(rev).Created++
	}

	updated := map[string]bool{}
	for _, rev := range revisions {
		if rev.IsInitialVersion || created[rev.ID] || updated[rev.ID] || !w.Contains(rev.CreatedAt) || !inSpace(rev.SpaceKey) {
			continue
		}
		updated[rev.ID] = true
		s.PagesUpdated++
		bump(rev).Updated++
	}

	seen := map[string]bool{}
	for _, c := range comments {
		if seen[c.ID] || !w.Contains(c.CreatedAt) || !inSpace(c.SpaceKey) {
			continue
		}
		seen[c.ID] = true
		s.CommentsWritten++
	}

	s.TotalContentActivity = s.PagesCreated + s.PagesUpdated
	s.CreationRate = perDay(s.PagesCreated, s.PeriodDays)
	s.UpdateRate = perDay(s.PagesUpdated, s.PeriodDays)
	s.CommentRate = perDay(s.CommentsWritten, s.PeriodDays)
	s.EngagementRatio = ratio(s.CommentsWritten, s.TotalContentActivity)

	for _, sa := range spaces {
		s.Spaces = append(s.Spaces, *sa)
	}
	sort.Slice(s.Spaces, func(i, j int) bool { return s.Spaces[i].Key < s.Spaces[j].Key })
	return s
}

// Title implements envelope.Renderer.
func (s ConfluenceSummary) Title() string {
	title := fmt.Sprintf("Confluence activity for %s (%s..%s, %d days)", s.Principal, s.FromDate, s.ToDate, s.PeriodDays)
	if space, ok := s.SpaceFilter.Get(); ok {
		title += " in space " + space
	}
	return title
}

// Fields implements envelope.Renderer.
func (s ConfluenceSummary) Fields() []envelope.Field {
	fields := []envelope.Field{
		envelope.Value("Pages created", format.Count(s.PagesCreated)),
		envelope.Value("Pages updated", format.Count(s.PagesUpdated)),
		envelope.Value("Comments written", format.Count(s.CommentsWritten)),
		envelope.Value("Total content activity", format.Count(s.TotalContentActivity)),
		envelope.Value("Creation rate", format.PerDay(s.CreationRate)),
		envelope.Value("Update rate", format.PerDay(s.UpdateRate)),
		envelope.Value("Comment rate", format.PerDay(s.CommentRate)),
		envelope.Value("Engagement ratio", format.Decimal(s.EngagementRatio)),
	}
	if len(s.Spaces) == 0 {
		return append(fields, envelope.Value("Spaces", "none"))
	}
	fields = append(fields, envelope.Header("Spaces"))
	for _, sa := range s.Spaces {
		fields = append(fields, envelope.Nested(sa.Key, fmt.Sprintf("%d created, %d updated", sa.Created, sa.Updated)))
	}
	return fields
}
