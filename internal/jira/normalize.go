package jira

import (
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/spiffcs/devpulse/internal/model"
)

// Jira renders timestamps like 2025-11-02T10:00:00.000+0000.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// searchPage is one decoded page of /search. Returned counts every issue
// object on the page, including ones dropped for lacking a key, so the
// next startAt stays aligned with the server.
type searchPage struct {
	Total    int
	Returned int
	Issues   []issueRecord
}

// issueRecord is a decoded issue plus whether search embedded only part
// of its changelog.
type issueRecord struct {
	model.Issue
	partialChangelog bool
}

func decodeSearchPage(d *jx.Decoder) (searchPage, error) {
	var p searchPage
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "total":
			if d.Next() != jx.Number {
				return d.Skip()
			}
			n, err := d.Int()
			p.Total = n
			return err
		case "issues":
			if d.Next() != jx.Array {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				p.Returned++
				issue, ok, err := decodeIssue(d)
				if err != nil {
					return err
				}
				if ok {
					p.Issues = append(p.Issues, issue)
				}
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return searchPage{}, errors.Wrap(err, "decode search page")
	}
	return p, nil
}

type history struct {
	at    time.Time
	items []model.StatusTransition
}

// decodeIssue reads one issue object. ok is false when the issue has no
// key; any other missing or mistyped field is left absent.
func decodeIssue(d *jx.Decoder) (issueRecord, bool, error) {
	if d.Next() != jx.Object {
		return issueRecord{}, false, d.Skip()
	}

	var (
		rec   issueRecord
		chlog changelogPage
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "key":
			s, err := optString(d)
			rec.Key = s.OrElse("")
			return err
		case "fields":
			return decodeFields(d, &rec.Issue)
		case "changelog":
			var err error
			chlog, err = decodeChangelog(d, "histories")
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return issueRecord{}, false, err
	}
	if rec.Key == "" {
		return issueRecord{}, false, nil
	}

	rec.Changelog = transitions(chlog.histories)
	rec.partialChangelog = chlog.total > chlog.returned
	return rec, true, nil
}

// transitions flattens histories into status transitions, oldest first.
func transitions(histories []history) []model.StatusTransition {
	sort.SliceStable(histories, func(i, j int) bool {
		return histories[i].at.Before(histories[j].at)
	})
	var out []model.StatusTransition
	for _, h := range histories {
		out = append(out, h.items...)
	}
	return out
}

func decodeFields(d *jx.Decoder, issue *model.Issue) error {
	if d.Next() != jx.Object {
		return d.Skip()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "created":
			var s model.Optional[string]
			s, err = optString(d)
			if v, ok := s.Get(); ok {
				if t, ok := parseTime(v); ok {
					issue.CreatedAt = t
				}
			}
		case "assignee":
			issue.Assignee, err = decodeUser(d)
		case "status":
			issue.Status, err = namedField(d)
		case "issuetype":
			issue.Type, err = namedField(d)
		case "priority":
			issue.Priority, err = namedField(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

// changelogPage is a decoded changelog. returned counts every history
// entry, including ones without status items, so it can be compared with
// total and used as the next startAt.
type changelogPage struct {
	total     int
	returned  int
	histories []history
}

// decodeChangelog reads a changelog object whose entries live under
// field: "histories" when embedded in search, "values" from the
// issue changelog endpoint.
func decodeChangelog(d *jx.Decoder, field string) (changelogPage, error) {
	var p changelogPage
	if d.Next() != jx.Object {
		return p, d.Skip()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch {
		case key == "total" && d.Next() == jx.Number:
			n, err := d.Int()
			p.total = n
			return err
		case key == field && d.Next() == jx.Array:
			return d.Arr(func(d *jx.Decoder) error {
				p.returned++
				h, ok, err := decodeHistory(d)
				if ok {
					p.histories = append(p.histories, h)
				}
				return err
			})
		default:
			return d.Skip()
		}
	})
	return p, err
}

// decodeHistory reads one changelog entry and keeps its status items. An
// entry without a parseable timestamp cannot be ordered and is dropped.
func decodeHistory(d *jx.Decoder) (history, bool, error) {
	if d.Next() != jx.Object {
		return history{}, false, d.Skip()
	}
	var (
		h       history
		created string
		items   []statusItem
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "created":
			s, err := optString(d)
			created = s.OrElse("")
			return err
		case "items":
			if d.Next() != jx.Array {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				it, err := decodeItem(d)
				if it.field == "status" {
					items = append(items, it)
				}
				return err
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return history{}, false, err
	}

	at, ok := parseTime(created)
	if !ok || len(items) == 0 {
		return history{}, false, nil
	}
	h.at = at
	for _, it := range items {
		h.items = append(h.items, model.StatusTransition{At: at, From: it.from, To: it.to})
	}
	return h, true, nil
}

type statusItem struct {
	field, from, to string
}

func decodeItem(d *jx.Decoder) (statusItem, error) {
	var it statusItem
	if d.Next() != jx.Object {
		return it, d.Skip()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var (
			s   model.Optional[string]
			err error
		)
		switch key {
		case "field":
			s, err = optString(d)
			it.field = s.OrElse("")
		case "fromString":
			s, err = optString(d)
			it.from = s.OrElse("")
		case "toString":
			s, err = optString(d)
			it.to = s.OrElse("")
		default:
			err = d.Skip()
		}
		return err
	})
	return it, err
}

// optString reads a string value. Any other JSON type, null included, is
// skipped and reported as absent.
func optString(d *jx.Decoder) (model.Optional[string], error) {
	if d.Next() != jx.String {
		return model.None[string](), d.Skip()
	}
	s, err := d.Str()
	if err != nil || s == "" {
		return model.None[string](), err
	}
	return model.Some(s), nil
}

// namedField reads the "name" of objects like status, issuetype and priority.
func namedField(d *jx.Decoder) (model.Optional[string], error) {
	name := model.None[string]()
	if d.Next() != jx.Object {
		return name, d.Skip()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "name" {
			return d.Skip()
		}
		var err error
		name, err = optString(d)
		return err
	})
	return name, err
}

// decodeUser prefers the stable account id over the email address, which
// Jira hides for users with restricted profile visibility.
func decodeUser(d *jx.Decoder) (model.Optional[string], error) {
	if d.Next() != jx.Object {
		return model.None[string](), d.Skip()
	}
	var accountID, email, display model.Optional[string]
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "accountId":
			accountID, err = optString(d)
		case "emailAddress":
			email, err = optString(d)
		case "displayName":
			display, err = optString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return model.None[string](), err
	}
	for _, v := range []model.Optional[string]{accountID, email, display} {
		if v.IsSet() {
			return v, nil
		}
	}
	return model.None[string](), nil
}
