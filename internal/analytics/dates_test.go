package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelineiq-backend/internal/domain"
)

func TestParseDealDateDateOnlyIsUTCMidnight(t *testing.T) {
	parsed, ok := ParseDealDate("2024-12-31")
	require.True(t, ok)
	assert.Equal(t, 2024, parsed.Year())
	assert.Equal(t, time.December, parsed.Month())
	assert.Equal(t, 31, parsed.Day())
	assert.Equal(t, time.UTC, parsed.Location())
	assert.Equal(t, 0, parsed.Hour())
}

func TestParseDealDateTimestamps(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"rfc3339", "2024-06-15T10:30:00Z", true},
		{"space separator", "2024-06-15 10:30:00Z", true},
		{"offset without colon", "2024-06-15T10:30:00+0700", true},
		{"no zone", "2024-06-15T10:30:00", true},
		{"garbage", "not-a-date", false},
		{"empty", "", false},
		{"bad date-only", "2024-13-45", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, ok := ParseDealDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, 2024, parsed.Year())
				assert.Equal(t, time.June, parsed.Month())
			}
		})
	}
}

func TestCloseTimePrefersCloseDate(t *testing.T) {
	closedAt := time.Date(2025, time.January, 2, 9, 0, 0, 0, time.UTC)
	deal := domain.Deal{CloseDate: "2024-12-31", ClosedAt: &closedAt}

	got, ok := CloseTime(deal)
	require.True(t, ok)
	assert.Equal(t, 2024, got.Year())

	deal.CloseDate = ""
	got, ok = CloseTime(deal)
	require.True(t, ok)
	assert.Equal(t, closedAt, got)

	deal.ClosedAt = nil
	_, ok = CloseTime(deal)
	assert.False(t, ok)
}

func TestCloseDeadlineIsEndOfDay(t *testing.T) {
	deal := domain.Deal{CloseDate: "2024-06-15"}
	deadline, ok := CloseDeadline(deal)
	require.True(t, ok)
	assert.Equal(t, 23, deadline.Hour())
	assert.Equal(t, 59, deadline.Minute())
	assert.Equal(t, 59, deadline.Second())
	assert.Equal(t, time.UTC, deadline.Location())
}

func TestYearFraction(t *testing.T) {
	assert.InDelta(t, 0, YearFraction(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)), 1e-9)
	assert.InDelta(t, 0.5, YearFraction(time.Date(2024, time.July, 2, 0, 0, 0, 0, time.UTC)), 0.01)
}

func TestDueBucket(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, DueOverdue, DueBucket("2025-05-09", now))
	assert.Equal(t, DueToday, DueBucket("2025-05-10", now))
	assert.Equal(t, DueUpcoming, DueBucket("2025-05-11", now))
	assert.Equal(t, "", DueBucket("", now))
	assert.Equal(t, "", DueBucket("not-a-date", now))

	// Still "today" late in the day; the deadline is end of day.
	lateNow := time.Date(2025, time.May, 10, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, DueToday, DueBucket("2025-05-10", lateNow))
}
