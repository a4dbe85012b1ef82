package stats

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// TrendPoint is the number of applications created on one UTC day and the
// running total up to and including that day.
type TrendPoint struct {
	Date       string `json:"date"`
	Count      int    `json:"count"`
	Cumulative int    `json:"cumulative"`
}

// MonthPoint is the number of applications created in one calendar month.
type MonthPoint struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// DefaultMonths is the window used by Monthly when months <= 0.
const DefaultMonths = 6

// Trend buckets apps by creation day (YYYY-MM-DD, UTC), ascending. Days with
// no applications are omitted.
func Trend(apps []domain.Application) []TrendPoint {
	counts := countBy(apps, func(t time.Time) string { return t.UTC().Format(time.DateOnly) })
	days := sortedKeys(counts)

	out := make([]TrendPoint, 0, len(days))
	running := 0
	for _, d := range days {
		running += counts[d]
		out = append(out, TrendPoint{Date: d, Count: counts[d], Cumulative: running})
	}
	return out
}

// Monthly buckets apps by creation month (YYYY-MM, UTC), ascending, and keeps
// the last `months` months that have data.
func Monthly(apps []domain.Application, months int) []MonthPoint {
	if months <= 0 {
		months = DefaultMonths
	}
	counts := countBy(apps, func(t time.Time) string { return t.UTC().Format("2006-01") })
	keys := sortedKeys(counts)
	if len(keys) > months {
		keys = keys[len(keys)-months:]
	}
	return lo.Map(keys, func(m string, _ int) MonthPoint {
		return MonthPoint{Month: m, Count: counts[m]}
	})
}

func countBy(apps []domain.Application, key func(time.Time) string) map[string]int {
	return lo.CountValuesBy(apps, func(a domain.Application) string { return key(a.CreatedAt) })
}

// Keys are fixed-width dates, so lexical order is chronological.
func sortedKeys(m map[string]int) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
