package analytics

import (
	"sort"
	"time"

	"pipelineiq-backend/internal/domain"
)

// FunnelStep reports how many deals entered a lifecycle stage during the
// selected year and how many of those later advanced to the next stage.
type FunnelStep struct {
	Stage          domain.LifecycleStage `json:"stage"`
	Entered        int                   `json:"entered"`
	Advanced       int                   `json:"advanced"`
	ConversionRate float64               `json:"conversionRate"`
}

var funnelOrder = []domain.LifecycleStage{domain.StageNew, domain.StageInProgress, domain.StageClosed}

func stageRank(s domain.LifecycleStage) int {
	for i, stage := range funnelOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Funnel computes entered/advanced/rate per adjacent stage pair over the
// year's entry cohort, plus an archived step for deals that went dead during
// the year. Entry is event-based: a deal entered a stage if a stage event
// into it occurred during the year, and deals that were already in a later
// stage before the year began are excluded from that stage's cohort.
// Advancing means a later event into the next stage, whenever it happens.
func Funnel(events []domain.DealStageEvent, year int) []FunnelStep {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	byDeal := make(map[int64][]domain.DealStageEvent)
	for _, e := range events {
		byDeal[e.DealID] = append(byDeal[e.DealID], e)
	}

	steps := make([]FunnelStep, len(funnelOrder)+1)
	for i, stage := range funnelOrder {
		steps[i].Stage = stage
	}
	archived := &steps[len(funnelOrder)]
	archived.Stage = domain.StageDead

	for _, dealEvents := range byDeal {
		sort.Slice(dealEvents, func(i, j int) bool {
			if dealEvents[i].OccurredAt.Equal(dealEvents[j].OccurredAt) {
				return dealEvents[i].ID < dealEvents[j].ID
			}
			return dealEvents[i].OccurredAt.Before(dealEvents[j].OccurredAt)
		})

		rankBefore := -1
		for _, e := range dealEvents {
			if !e.OccurredAt.Before(yearStart) {
				break
			}
			if r := stageRank(e.ToStage); r > rankBefore {
				rankBefore = r
			}
		}

		for rank := range funnelOrder {
			if rankBefore > rank {
				continue
			}
			entry, entered := firstEntry(dealEvents, rank, yearStart, yearEnd)
			if !entered {
				continue
			}
			steps[rank].Entered++
			if advancedAfter(dealEvents, rank+1, entry) {
				steps[rank].Advanced++
			}
		}

		for _, e := range dealEvents {
			if e.ToStage == domain.StageDead && !e.OccurredAt.Before(yearStart) && e.OccurredAt.Before(yearEnd) {
				archived.Entered++
				break
			}
		}
	}

	for i := range steps {
		if steps[i].Entered > 0 {
			steps[i].ConversionRate = float64(steps[i].Advanced) / float64(steps[i].Entered) * 100
		}
	}
	return steps
}

func firstEntry(events []domain.DealStageEvent, rank int, start, end time.Time) (domain.DealStageEvent, bool) {
	for _, e := range events {
		if stageRank(e.ToStage) != rank {
			continue
		}
		if e.OccurredAt.Before(start) || !e.OccurredAt.Before(end) {
			continue
		}
		return e, true
	}
	return domain.DealStageEvent{}, false
}

// advancedAfter reports whether the deal moved into the next stage after its
// entry event. Bulk migrations can stamp both events with one timestamp, so
// equal times count too, with the event id sequence as the tiebreak.
func advancedAfter(events []domain.DealStageEvent, nextRank int, entry domain.DealStageEvent) bool {
	if nextRank >= len(funnelOrder) {
		return false
	}
	for _, e := range events {
		if stageRank(e.ToStage) != nextRank {
			continue
		}
		if e.OccurredAt.After(entry.OccurredAt) {
			return true
		}
		if e.OccurredAt.Equal(entry.OccurredAt) && e.ID > entry.ID {
			return true
		}
	}
	return false
}
