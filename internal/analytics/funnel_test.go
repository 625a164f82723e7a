package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelineiq-backend/internal/domain"
)

func event(dealID int64, to domain.LifecycleStage, at time.Time) domain.DealStageEvent {
	return domain.DealStageEvent{DealID: dealID, ToStage: to, OccurredAt: at}
}

func TestFunnel(t *testing.T) {
	jan := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	events := []domain.DealStageEvent{
		// deal 1: full path new -> in_progress -> closed
		event(1, domain.StageNew, jan),
		event(1, domain.StageInProgress, mar),
		event(1, domain.StageClosed, jun),
		// deal 2: entered new, never advanced
		event(2, domain.StageNew, jan),
		// deal 3: entered new, archived
		event(3, domain.StageNew, jan),
		event(3, domain.StageDead, mar),
	}

	steps := Funnel(events, 2024)
	require.Len(t, steps, 4)

	newStep := steps[0]
	assert.Equal(t, domain.StageNew, newStep.Stage)
	assert.Equal(t, 3, newStep.Entered)
	assert.Equal(t, 1, newStep.Advanced)
	assert.InDelta(t, 100.0/3, newStep.ConversionRate, 1e-9)

	inProgress := steps[1]
	assert.Equal(t, 1, inProgress.Entered)
	assert.Equal(t, 1, inProgress.Advanced)
	assert.InDelta(t, 100, inProgress.ConversionRate, 1e-9)

	closed := steps[2]
	assert.Equal(t, 1, closed.Entered)
	assert.Zero(t, closed.Advanced)

	archivedStep := steps[3]
	assert.Equal(t, domain.StageDead, archivedStep.Stage)
	assert.Equal(t, 1, archivedStep.Entered)
}

func TestFunnelExcludesDealsAlreadyInLaterStage(t *testing.T) {
	prior := time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	events := []domain.DealStageEvent{
		// already in_progress before the year began; re-enters new in 2024
		event(1, domain.StageInProgress, prior),
		event(1, domain.StageNew, jan),
	}

	steps := Funnel(events, 2024)
	assert.Zero(t, steps[0].Entered, "deal already past new before the year began")
}

func TestFunnelAdvancementCrossesYearBoundary(t *testing.T) {
	dec := time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC)
	nextFeb := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	events := []domain.DealStageEvent{
		event(1, domain.StageNew, dec),
		event(1, domain.StageInProgress, nextFeb),
	}

	steps := Funnel(events, 2024)
	assert.Equal(t, 1, steps[0].Entered)
	assert.Equal(t, 1, steps[0].Advanced, "advancement counts even if it happens after year end")
}

func TestFunnelSameTimestampAdvancement(t *testing.T) {
	at := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	// a create-then-move in one transaction stamps both events with the same
	// timestamp; the id sequence still orders them
	events := []domain.DealStageEvent{
		{ID: 1, DealID: 1, ToStage: domain.StageNew, OccurredAt: at},
		{ID: 2, DealID: 1, ToStage: domain.StageInProgress, OccurredAt: at},
	}

	steps := Funnel(events, 2024)
	assert.Equal(t, 1, steps[0].Entered)
	assert.Equal(t, 1, steps[0].Advanced)
}

func TestFunnelEmpty(t *testing.T) {
	steps := Funnel(nil, 2024)
	require.Len(t, steps, 4)
	for _, s := range steps {
		assert.Zero(t, s.Entered)
		assert.Zero(t, s.ConversionRate, "rate must be 0, not NaN, with no entries")
	}
}
