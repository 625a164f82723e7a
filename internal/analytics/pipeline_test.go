package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelineiq-backend/internal/domain"
)

func TestPipelineDistribution(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	statuses := []domain.PipelineStatus{
		{ID: 1, Name: "New Lead", SortOrder: 1, Lifecycle: domain.StageNew},
		{ID: 2, Name: "Under Contract", SortOrder: 2, Lifecycle: domain.StageInProgress},
		{ID: 3, Name: "Closed", SortOrder: 3, Lifecycle: domain.StageClosed},
	}
	deals := []domain.Deal{
		{Status: domain.StageNew, PipelineStatusID: 1, ActualSalePrice: 300000, GrossCommissionRate: 0.03, StageEnteredAt: now.AddDate(0, 0, -45)},
		{Status: domain.StageNew, PipelineStatusID: 1, ExpectedSalePrice: 200000, GrossCommissionRate: 0.03, StageEnteredAt: now.AddDate(0, 0, -5)},
		{Status: domain.StageInProgress, PipelineStatusID: 2, ExpectedSalePrice: 450000, GrossCommissionRate: 0.025, StageEnteredAt: now.AddDate(0, 0, -30)},
		// closed and dead deals are excluded from the distribution
		{Status: domain.StageClosed, PipelineStatusID: 3, ActualSalePrice: 900000, GrossCommissionRate: 0.03},
		{Status: domain.StageDead, PipelineStatusID: 1},
	}

	dist := PipelineDistribution(deals, statuses, now)
	require.Len(t, dist, 3)

	assert.Equal(t, "New Lead", dist[0].Status)
	assert.Equal(t, 2, dist[0].Deals)
	assert.Equal(t, 1, dist[0].Stalled, "45 days in stage is stalled, 5 is not")
	assert.InDelta(t, 300000*0.03+200000*0.03, dist[0].GCI, 1e-9)

	assert.Equal(t, 1, dist[1].Deals)
	assert.Equal(t, 1, dist[1].Stalled, "exactly 30 days counts as stalled")

	assert.Zero(t, dist[2].Deals)
}

func TestClosingThisMonth(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	deals := []domain.Deal{
		{ClientName: "in-month", Status: domain.StageInProgress, CloseDate: "2024-06-30"},
		{ClientName: "first-of-month", Status: domain.StageInProgress, CloseDate: "2024-06-01"},
		{ClientName: "next-month", Status: domain.StageInProgress, CloseDate: "2024-07-01"},
		{ClientName: "dead", Status: domain.StageDead, CloseDate: "2024-06-20"},
		{ClientName: "no-date", Status: domain.StageInProgress},
	}

	got := ClosingThisMonth(deals, now)
	require.Len(t, got, 2)
	assert.Equal(t, "first-of-month", got[0].ClientName)
	assert.Equal(t, "in-month", got[1].ClientName)
}

func TestClosingWithinDaysIncludesToday(t *testing.T) {
	now := time.Date(2024, time.June, 15, 18, 0, 0, 0, time.UTC)
	deals := []domain.Deal{
		// date-only close dates resolve to end of day, so "today" is still due
		{ClientName: "today", Status: domain.StageInProgress, CloseDate: "2024-06-15"},
		{ClientName: "in-window", Status: domain.StageInProgress, CloseDate: "2024-06-20"},
		{ClientName: "past", Status: domain.StageInProgress, CloseDate: "2024-06-14"},
		{ClientName: "beyond", Status: domain.StageInProgress, CloseDate: "2024-07-20"},
	}

	got := ClosingWithinDays(deals, now, 7)
	require.Len(t, got, 2)
	assert.Equal(t, "today", got[0].ClientName)
	assert.Equal(t, "in-window", got[1].ClientName)
}

func TestClosingUntilIncludesEndDate(t *testing.T) {
	// late in the day on the 5th, asking for everything through the 7th
	now := time.Date(2025, time.January, 5, 22, 0, 0, 0, time.UTC)
	until := time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)
	deals := []domain.Deal{
		{ClientName: "on-until-date", Status: domain.StageInProgress, CloseDate: "2025-01-07"},
		{ClientName: "tomorrow", Status: domain.StageInProgress, CloseDate: "2025-01-06"},
		{ClientName: "after-until", Status: domain.StageInProgress, CloseDate: "2025-01-08"},
		{ClientName: "before-now", Status: domain.StageInProgress, CloseDate: "2025-01-04"},
	}

	got := ClosingUntil(deals, now, until)
	require.Len(t, got, 2)
	assert.Equal(t, "tomorrow", got[0].ClientName)
	assert.Equal(t, "on-until-date", got[1].ClientName)
}
