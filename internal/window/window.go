// Package window models the inclusive calendar-date range every metric is
// computed over.
package window

import (
	"strings"
	"time"

	"github.com/spiffcs/devpulse/internal/apperr"
)

// Layout is the ISO calendar date format accepted on input.
const Layout = "2006-01-02"

const day = 24 * time.Hour

// Window is an inclusive range of UTC calendar dates.
type Window struct {
	From time.Time
	To   time.Time
}

// Parse validates two ISO dates and builds a window. Dates that fail to
// parse or are out of order are reported as validation errors.
func Parse(from, to string) (Window, error) {
	f, err := parseDate("from_date", from)
	if err != nil {
		return Window{}, err
	}
	t, err := parseDate("to_date", to)
	if err != nil {
		return Window{}, err
	}
	w := Window{From: f, To: t}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Validation("%s is required", field)
	}
	d, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Validation("%s %q is not a YYYY-MM-DD date", field, s)
	}
	return d, nil
}

// Validate reports whether the window is usable for a query.
func (w Window) Validate() error {
	if w.From.IsZero() || w.To.IsZero() {
		return apperr.Validation("date window is not set")
	}
	if w.From.After(w.To) {
		return apperr.Validation("from_date %s is after to_date %s", w.FromDate(), w.ToDate())
	}
	return nil
}

// Days returns the inclusive length of the window in days.
func (w Window) Days() int {
	return int(w.To.Sub(w.From)/day) + 1
}

// End returns the exclusive upper bound: midnight after To.
func (w Window) End() time.Time {
	return w.To.Add(day)
}

// Contains reports whether t falls on a date inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	t = t.UTC()
	return !t.Before(w.From) && t.Before(w.End())
}

// FromDate returns the start date in ISO form.
func (w Window) FromDate() string { return w.From.Format(Layout) }

// ToDate returns the end date in ISO form.
func (w Window) ToDate() string { return w.To.Format(Layout) }

// EndDate returns the day after To in ISO form. Upstream query languages
// read a bare date as midnight, so "< EndDate" keeps all of To.
func (w Window) EndDate() string { return w.End().Format(Layout) }

func (w Window) String() string {
	return w.FromDate() + ".." + w.ToDate()
}
