package analytics

import (
	"sort"
	"time"

	"pipelineiq-backend/internal/domain"
)

// StalledAfter is how long a deal may sit in one stage before the pipeline
// distribution counts it as stalled.
const StalledAfter = 30 * 24 * time.Hour

// StageDistribution summarizes open deals per pipeline stage.
type StageDistribution struct {
	StatusID  int64   `json:"statusId"`
	Status    string  `json:"status"`
	SortOrder int     `json:"sortOrder"`
	Deals     int     `json:"deals"`
	GCI       float64 `json:"gci"`
	Stalled   int     `json:"stalled"`
}

// PipelineDistribution folds open (non-closed, non-dead) deals into
// per-stage counts, summed expected-or-actual GCI, and stalled counts based
// on stage_entered_at.
func PipelineDistribution(deals []domain.Deal, statuses []domain.PipelineStatus, now time.Time) []StageDistribution {
	byID := make(map[int64]*StageDistribution, len(statuses))
	out := make([]StageDistribution, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, StageDistribution{StatusID: s.ID, Status: s.Name, SortOrder: s.SortOrder})
	}
	for i := range out {
		byID[out[i].StatusID] = &out[i]
	}
	for _, d := range deals {
		if d.Status == domain.StageClosed || d.Status == domain.StageDead {
			continue
		}
		dist, ok := byID[d.PipelineStatusID]
		if !ok {
			continue
		}
		dist.Deals++
		dist.GCI += NetCommission(d)
		if !d.StageEnteredAt.IsZero() && now.Sub(d.StageEnteredAt) >= StalledAfter {
			dist.Stalled++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// ClosingThisMonth selects open or closed deals whose resolved close
// deadline falls inside now's calendar month. Fixed calendar month is the
// canonical window; rolling windows go through ClosingWithinDays.
func ClosingThisMonth(deals []domain.Deal, now time.Time) []domain.Deal {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return closingBetween(deals, start, end)
}

// ClosingWithinDays selects deals whose close deadline falls within the
// rolling window [now, now+days). Date-only close dates resolve to end of
// day, making deals due today inclusive.
func ClosingWithinDays(deals []domain.Deal, now time.Time, days int) []domain.Deal {
	return closingBetween(deals, now, now.AddDate(0, 0, days))
}

// ClosingUntil selects deals whose close deadline falls within [now, until],
// with until resolved to end of day so a deal closing on the until date is
// included no matter now's time of day.
func ClosingUntil(deals []domain.Deal, now, until time.Time) []domain.Deal {
	return closingBetween(deals, now, endOfDay(until).Add(time.Millisecond))
}

func closingBetween(deals []domain.Deal, start, end time.Time) []domain.Deal {
	var out []domain.Deal
	for _, d := range deals {
		if d.Status == domain.StageDead {
			continue
		}
		deadline, ok := CloseDeadline(d)
		if !ok {
			continue
		}
		if !deadline.Before(start) && deadline.Before(end) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := CloseDeadline(out[i])
		b, _ := CloseDeadline(out[j])
		return a.Before(b)
	})
	return out
}
