// Package stats derives read-only aggregates from the canonical report
// set. Every function tolerates an empty set.
package stats

import (
	"fmt"
	"time"

	"jangbu/internal/core"
)

// Bucket is one row of a period aggregation.
type Bucket struct {
	Label       string     `json:"label"`
	TotalAmount core.Money `json:"totalAmount"`
	TotalCount  int64      `json:"totalCount"`
}

// MonthTotal sums totalAmount over reports dated in the given calendar
// month.
func MonthTotal(reports []core.DailyReport, year int, month time.Month) core.Money {
	var sum core.Money
	for _, r := range reports {
		if r.Date.InMonth(year, month) {
			sum = sum.Add(r.TotalAmount)
		}
	}
	return sum
}

// Recent returns the first n reports of the canonically sorted set. The
// caller gets a view into the input slice, not a copy.
func Recent(reports []core.DailyReport, n int) []core.DailyReport {
	if n < 0 {
		n = 0
	}
	if n > len(reports) {
		n = len(reports)
	}
	return reports[:n]
}

// PeriodBuckets groups reports into calendar buckets of the given
// granularity, summing amounts and counts. Bucket order follows the
// first occurrence of each label in the input, so a date-descending
// input yields buckets in recency order.
func PeriodBuckets(reports []core.DailyReport, period core.Period) []Bucket {
	index := make(map[string]int)
	var buckets []Bucket
	for _, r := range reports {
		label := BucketLabel(r.Date, period)
		i, ok := index[label]
		if !ok {
			i = len(buckets)
			index[label] = i
			buckets = append(buckets, Bucket{Label: label})
		}
		buckets[i].TotalAmount = buckets[i].TotalAmount.Add(r.TotalAmount)
		buckets[i].TotalCount += r.TotalCount
	}
	return buckets
}

// BucketLabel renders the bucket a date belongs to. Weekly buckets use
// the ISO week, so days around new year may label into the adjacent
// year's week.
func BucketLabel(d core.Date, period core.Period) string {
	switch period {
	case core.Weekly:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case core.Monthly:
		return d.Format("2006-01")
	case core.Yearly:
		return d.Format("2006")
	default:
		return d.String()
	}
}

// MenuSummary aggregates menu lines across every entry of every report,
// ordered by summed amount descending.
func MenuSummary(reports []core.DailyReport) []core.MenuTotal {
	entries := make([]core.PlatformEntry, 0, len(reports))
	for _, r := range reports {
		entries = append(entries, r.Entries...)
	}
	return core.SummarizeMenus(entries)
}
