// Package stats turns normalized records into per-integration metric
// summaries. Aggregation is pure: it never fails and never performs I/O.
// Metrics that cannot be computed are absent rather than zero.
package stats

import (
	"math"
	"sort"

	"github.com/spiffcs/devpulse/internal/model"
	"github.com/spiffcs/devpulse/internal/window"
)

// Period identifies who and when a summary describes.
type Period struct {
	FromDate   string `json:"from_date"`
	ToDate     string `json:"to_date"`
	PeriodDays int    `json:"period_days"`
}

func periodOf(w window.Window) Period {
	return Period{FromDate: w.FromDate(), ToDate: w.ToDate(), PeriodDays: w.Days()}
}

// round2 rounds to two decimals, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(values []float64) model.Optional[float64] {
	if len(values) == 0 {
		return model.None[float64]()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return model.Some(round2(sum / float64(len(values))))
}

// ratio is num/den, absent when den is zero.
func ratio(num, den int) model.Optional[float64] {
	if den == 0 {
		return model.None[float64]()
	}
	return model.Some(round2(float64(num) / float64(den)))
}

func scale(v model.Optional[float64], by float64) model.Optional[float64] {
	f, ok := v.Get()
	if !ok {
		return v
	}
	return model.Some(round2(f * by))
}

// perDay divides by the period length, never by less than one day.
func perDay(n, days int) float64 {
	return round2(float64(n) / float64(max(1, days)))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
