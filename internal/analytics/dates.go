package analytics

import (
	"strings"
	"time"

	"pipelineiq-backend/internal/domain"
)

const dateOnlyLayout = "2006-01-02"

// ParseDealDate parses a date-only string (YYYY-MM-DD) or a full timestamp.
// Date-only values are parsed as UTC midnight so a deal never drifts into a
// neighboring month or year for viewers behind UTC. Timestamps tolerate a
// space separator and a colon-less zone offset before RFC3339 parsing.
func ParseDealDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if len(value) == len(dateOnlyLayout) {
		t, err := time.ParseInLocation(dateOnlyLayout, value, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	normalized := normalizeTimestamp(value)
	if t, err := time.Parse(time.RFC3339, normalized); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", normalized); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func normalizeTimestamp(value string) string {
	if len(value) > 10 && value[10] == ' ' {
		value = value[:10] + "T" + value[11:]
	}
	// Insert the offset colon pgAdmin-style timestamps omit: +0700 -> +07:00.
	if len(value) >= 5 {
		tail := value[len(value)-5:]
		if (tail[0] == '+' || tail[0] == '-') && !strings.Contains(tail, ":") {
			value = value[:len(value)-2] + ":" + value[len(value)-2:]
		}
	}
	return value
}

// CloseTime resolves the close-stats date basis for a deal: close_date
// falling back to closed_at. Cohort stats use created_at instead; the two
// bases are never interchanged, so a deal created in one year and closed in
// the next counts toward the closed year for closed-stats and the created
// year for cohort-stats.
func CloseTime(d domain.Deal) (time.Time, bool) {
	if t, ok := ParseDealDate(d.CloseDate); ok {
		return t, true
	}
	if d.ClosedAt != nil && !d.ClosedAt.IsZero() {
		return *d.ClosedAt, true
	}
	return time.Time{}, false
}

// CloseDeadline is CloseTime with date-only values pushed to end of day
// (23:59:59.999 UTC) so "due today" windows are inclusive.
func CloseDeadline(d domain.Deal) (time.Time, bool) {
	if t, ok := ParseDealDate(d.CloseDate); ok {
		return endOfDay(t), true
	}
	if d.ClosedAt != nil && !d.ClosedAt.IsZero() {
		return *d.ClosedAt, true
	}
	return time.Time{}, false
}

func endOfDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 23, 59, 59, 999_000_000, time.UTC)
}

// Due buckets for date-only due dates.
const (
	DueOverdue  = "overdue"
	DueToday    = "today"
	DueUpcoming = "upcoming"
)

// DueBucket classifies a date-only due date against now: past end of day is
// overdue, the current UTC date is today, anything later is upcoming. An
// unparsable or empty value returns "".
func DueBucket(dueDate string, now time.Time) string {
	t, ok := ParseDealDate(dueDate)
	if !ok {
		return ""
	}
	if endOfDay(t).Before(now) {
		return DueOverdue
	}
	ny, nm, nd := now.UTC().Date()
	y, m, d := t.Date()
	if y == ny && m == nm && d == nd {
		return DueToday
	}
	return DueUpcoming
}

// YearFraction is the elapsed fraction of now's calendar year, in [0,1].
func YearFraction(now time.Time) float64 {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	end := time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, now.Location())
	return float64(now.Sub(start)) / float64(end.Sub(start))
}
