package window

import (
	"fmt"
	"time"

	"github.com/spiffcs/devpulse/internal/apperr"
)

// Since builds a window ending on now's date and reaching back the given
// relative expression, like "1w", "30d" or "6mo". Months count as 30 days
// and years as 365.
func Since(expr string, now time.Time) (Window, error) {
	var n int
	var unit string
	if _, err := fmt.Sscanf(expr, "%d%s", &n, &unit); err != nil || n <= 0 {
		return Window{}, apperr.Validation("invalid relative window %q (use e.g. 1w, 30d, 6mo)", expr)
	}

	var days int
	switch unit {
	case "d", "day", "days":
		days = n
	case "w", "wk", "wks", "week", "weeks":
		days = n * 7
	case "mo", "month", "months":
		days = n * 30
	case "y", "yr", "yrs", "year", "years":
		days = n * 365
	default:
		return Window{}, apperr.Validation("unknown window unit %q", unit)
	}

	now = now.UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	// A 1d window covers today only.
	return Window{From: to.AddDate(0, 0, -(days - 1)), To: to}, nil
}
