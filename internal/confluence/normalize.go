package confluence

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/spiffcs/devpulse/internal/model"
)

// user is a Confluence user reference. Cloud hides the email of users
// with restricted profile visibility, so either field may be empty.
type user struct {
	AccountID string
	Email     string
}

// is reports whether u is the principal, given as an email or account id.
func (u user) is(principal string) bool {
	if principal == "" {
		return false
	}
	return (u.AccountID != "" && u.AccountID == principal) ||
		(u.Email != "" && strings.EqualFold(u.Email, principal))
}

func (u user) String() string {
	if u.AccountID != "" {
		return u.AccountID
	}
	return u.Email
}

// content is the subset of a content object the aggregations read.
type content struct {
	ID            string
	Title         string
	SpaceKey      string
	SpaceName     string
	VersionNumber int
	VersionWhen   time.Time
	VersionBy     user
	CreatedDate   time.Time
	CreatedBy     user
	UpdatedWhen   time.Time
	UpdatedBy     user
}

// resultsPage is one page of a results listing. Returned counts every
// entry, including ones dropped for lacking an id.
type resultsPage struct {
	Items    []content
	Returned int
	HasNext  bool
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000-0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func decodeResults(d *jx.Decoder) (resultsPage, error) {
	var p resultsPage
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "results":
			if d.Next() != jx.Array {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				p.Returned++
				c, err := decodeContent(d)
				if err != nil {
					return err
				}
				if c.ID != "" {
					p.Items = append(p.Items, c)
				}
				return nil
			})
		case "_links":
			if d.Next() != jx.Object {
				return d.Skip()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key == "next" && d.Next() == jx.String {
					p.HasNext = true
				}
				return d.Skip()
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return resultsPage{}, errors.Wrap(err, "decode results")
	}
	return p, nil
}

func decodeContent(d *jx.Decoder) (content, error) {
	var c content
	if d.Next() != jx.Object {
		return c, d.Skip()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return readString(d, &c.ID)
		case "title":
			return readString(d, &c.Title)
		case "space":
			return eachKey(d, func(d *jx.Decoder, key string) error {
				switch key {
				case "key":
					return readString(d, &c.SpaceKey)
				case "name":
					return readString(d, &c.SpaceName)
				}
				return d.Skip()
			})
		case "version":
			return eachKey(d, func(d *jx.Decoder, key string) error {
				switch key {
				case "number":
					if d.Next() != jx.Number {
						return d.Skip()
					}
					n, err := d.Int()
					c.VersionNumber = n
					return err
				case "when":
					return readTime(d, &c.VersionWhen)
				case "by":
					return readUser(d, &c.VersionBy)
				}
				return d.Skip()
			})
		case "history":
			return eachKey(d, func(d *jx.Decoder, key string) error {
				switch key {
				case "createdDate":
					return readTime(d, &c.CreatedDate)
				case "createdBy":
					return readUser(d, &c.CreatedBy)
				case "lastUpdated":
					return eachKey(d, func(d *jx.Decoder, key string) error {
						switch key {
						case "when":
							return readTime(d, &c.UpdatedWhen)
						case "by":
							return readUser(d, &c.UpdatedBy)
						}
						return d.Skip()
					})
				}
				return d.Skip()
			})
		default:
			return d.Skip()
		}
	})
	return c, err
}

// eachKey walks an object, skipping values of any other type.
func eachKey(d *jx.Decoder, f func(d *jx.Decoder, key string) error) error {
	if d.Next() != jx.Object {
		return d.Skip()
	}
	return d.Obj(f)
}

func readString(d *jx.Decoder, dst *string) error {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		*dst = s
		return err
	case jx.Number:
		// Some endpoints render ids as numbers.
		n, err := d.Num()
		*dst = n.String()
		return err
	default:
		return d.Skip()
	}
}

func readTime(d *jx.Decoder, dst *time.Time) error {
	var s string
	if err := readString(d, &s); err != nil {
		return err
	}
	if t, ok := parseTime(s); ok {
		*dst = t
	}
	return nil
}

func readUser(d *jx.Decoder, dst *user) error {
	return eachKey(d, func(d *jx.Decoder, key string) error {
		switch key {
		case "accountId":
			return readString(d, &dst.AccountID)
		case "email":
			return readString(d, &dst.Email)
		}
		return d.Skip()
	})
}

// createdRevision describes the creation of a page from the creator search.
func createdRevision(c content) (model.ContentRevision, bool) {
	at := c.CreatedDate
	if at.IsZero() && c.VersionNumber == 1 {
		at = c.VersionWhen
	}
	if c.ID == "" {
		return model.ContentRevision{}, false
	}
	return model.ContentRevision{
		ID:               c.ID,
		Title:            c.Title,
		Creator:          c.CreatedBy.String(),
		CreatedAt:        at,
		IsInitialVersion: true,
		SpaceKey:         c.SpaceKey,
		SpaceName:        c.SpaceName,
	}, true
}

// updatedRevision describes the latest revision of a page from the
// modified search. A page still at version 1 was created, not updated.
func updatedRevision(c content) (model.ContentRevision, bool) {
	if c.ID == "" {
		return model.ContentRevision{}, false
	}
	at, by := c.UpdatedWhen, c.UpdatedBy
	if at.IsZero() {
		at, by = c.VersionWhen, c.VersionBy
	}
	return model.ContentRevision{
		ID:               c.ID,
		Title:            c.Title,
		Creator:          by.String(),
		CreatedAt:        at,
		IsInitialVersion: c.VersionNumber == 1,
		SpaceKey:         c.SpaceKey,
		SpaceName:        c.SpaceName,
	}, true
}

// commentRecord normalizes a comment listed under page. Comments carry
// their authorship on the version.
func commentRecord(c content, page content) model.Comment {
	return model.Comment{
		ID:        c.ID,
		PageID:    page.ID,
		Author:    c.VersionBy.String(),
		CreatedAt: c.VersionWhen,
		SpaceKey:  page.SpaceKey,
	}
}
