package format

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spiffcs/devpulse/internal/model"
)

// NotAvailable is printed for absent metrics.
const NotAvailable = "n/a"

// Count formats an integer count.
func Count(n int) string {
	return strconv.Itoa(n)
}

// Decimal formats v with two decimals, or n/a.
func Decimal(v model.Optional[float64]) string {
	f, ok := v.Get()
	if !ok {
		return NotAvailable
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Hours formats a duration in hours with a compact hint, e.g. "48.00h (2d)".
func Hours(v model.Optional[float64]) string {
	h, ok := v.Get()
	if !ok {
		return NotAvailable
	}
	return fmt.Sprintf("%.2fh (%s)", h, Elapsed(time.Duration(h*float64(time.Hour))))
}

// Percent formats a 0..1 ratio as a percentage, e.g. "50.0%".
func Percent(v model.Optional[float64]) string {
	f, ok := v.Get()
	if !ok {
		return NotAvailable
	}
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}

// PerDay formats a daily rate.
func PerDay(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "/day"
}
