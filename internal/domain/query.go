package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DayLayout is the warehouse date format for day-level keys.
const DayLayout = "2006-01-02"

// MonthLayout is the warehouse format for month-level keys.
const MonthLayout = "2006-01"

// MaxRangeDays bounds a single query so one request cannot scan years of
// day-level rows.
const MaxRangeDays = 366

// DefaultClearSkyThreshold is the clear-sky ratio at or above which a day
// counts as a clear-sky day.
const DefaultClearSkyThreshold = 0.85

// ErrInvalidQuery is wrapped by every query validation failure.
var ErrInvalidQuery = errors.New("invalid query")

// Query selects the rows feeding one dashboard view.
type Query struct {
	Plant             string
	From              time.Time
	To                time.Time
	Metric            string
	Blocks            []string
	ClearSkyThreshold float64
	// Technology restricts stations to one technology; empty means all.
	Technology Technology
}

// Validate checks the query and normalizes the block filter.
func (q *Query) Validate() error {
	q.Plant = strings.ToUpper(strings.TrimSpace(q.Plant))
	if q.Plant == "" {
		return fmt.Errorf("%w: plant is required", ErrInvalidQuery)
	}
	if q.From.IsZero() || q.To.IsZero() {
		return fmt.Errorf("%w: from and to are required", ErrInvalidQuery)
	}
	q.From = truncateDay(q.From)
	q.To = truncateDay(q.To)
	if q.To.Before(q.From) {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidQuery, q.FromKey(), q.ToKey())
	}
	if days := q.Days(); days > MaxRangeDays {
		return fmt.Errorf("%w: range of %d days exceeds %d", ErrInvalidQuery, days, MaxRangeDays)
	}
	if q.ClearSkyThreshold <= 0 || q.ClearSkyThreshold > 1 {
		q.ClearSkyThreshold = DefaultClearSkyThreshold
	}
	q.Blocks = normalizeBlocks(q.Blocks)
	return nil
}

// Days returns the inclusive number of days in the range.
func (q Query) Days() int {
	return int(q.To.Sub(q.From).Hours()/24) + 1
}

// FromKey returns the lower bound in warehouse format.
func (q Query) FromKey() string { return q.From.Format(DayLayout) }

// ToKey returns the upper bound in warehouse format.
func (q Query) ToKey() string { return q.To.Format(DayLayout) }

// FromMonth returns the month of the lower bound, for monthly tables.
func (q Query) FromMonth() string { return q.From.Format(MonthLayout) }

// ToMonth returns the month of the upper bound, for monthly tables.
func (q Query) ToMonth() string { return q.To.Format(MonthLayout) }

// CacheKey returns a stable textual form of the query.
func (q Query) CacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%.3f|%s",
		q.Plant, q.FromKey(), q.ToKey(), q.Metric, strings.Join(q.Blocks, ","), q.ClearSkyThreshold, q.Technology)
}

// ParseDay parses a warehouse day key.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidQuery, s)
	}
	return t, nil
}

// DefaultRange returns the n days ending yesterday relative to the package
// clock, so partially loaded days are never shown.
func DefaultRange(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = 30
	}
	to := truncateDay(clock.Now().UTC()).AddDate(0, 0, -1)
	return to.AddDate(0, 0, -(days - 1)), to
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// normalizeBlocks upper-cases, prefixes, dedupes and sorts block filters:
// "2", "b02" and "B2" all become "B02".
func normalizeBlocks(blocks []string) []string {
	seen := make(map[string]bool, len(blocks))
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		b = "B" + padNumber(trimPrefixFold(b, "B"))
		if seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
