package service

import (
	"testing"
	"time"

	"pipelineiq-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTransitionSameStageIsNoop(t *testing.T) {
	deal := domain.Deal{ID: 1, PipelineStatusID: 3}
	target := domain.PipelineStatus{ID: 3, Lifecycle: domain.StageInProgress}

	_, ok := PlanTransition(deal, target, time.Now())
	assert.False(t, ok)
}

func TestPlanTransitionIntoClosedStampsClosedAt(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	deal := domain.Deal{ID: 1, PipelineStatusID: 3, Status: domain.StageInProgress}
	target := domain.PipelineStatus{ID: 9, Lifecycle: domain.StageClosed}

	tr, ok := PlanTransition(deal, target, now)
	require.True(t, ok)
	assert.Equal(t, int64(9), tr.StatusID)
	assert.Equal(t, domain.StageClosed, tr.Stage)
	assert.Equal(t, now, tr.StageEnteredAt)
	require.NotNil(t, tr.ClosedAt)
	assert.Equal(t, now, *tr.ClosedAt)
}

func TestPlanTransitionOutOfClosedClearsClosedAt(t *testing.T) {
	now := time.Now()
	closed := now.Add(-24 * time.Hour)
	deal := domain.Deal{ID: 1, PipelineStatusID: 9, Status: domain.StageClosed, ClosedAt: &closed}
	target := domain.PipelineStatus{ID: 3, Lifecycle: domain.StageInProgress}

	tr, ok := PlanTransition(deal, target, now)
	require.True(t, ok)
	assert.Nil(t, tr.ClosedAt)
}

func TestPlanTransitionResetsStageEnteredAt(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	deal := domain.Deal{ID: 1, PipelineStatusID: 2, StageEnteredAt: now.Add(-90 * 24 * time.Hour)}
	target := domain.PipelineStatus{ID: 4, Lifecycle: domain.StageInProgress}

	tr, ok := PlanTransition(deal, target, now)
	require.True(t, ok)
	assert.Equal(t, now, tr.StageEnteredAt)
}

func TestValidateReorder(t *testing.T) {
	base := domain.Deal{ID: 1, PipelineStatusID: 2, DealType: domain.DealTypeBuyer}

	assert.ErrorIs(t, ValidateReorder(base, base), ErrReorderSelf)

	other := domain.Deal{ID: 2, PipelineStatusID: 5, DealType: domain.DealTypeBuyer}
	assert.ErrorIs(t, ValidateReorder(base, other), ErrReorderCrossStage)

	other = domain.Deal{ID: 2, PipelineStatusID: 2, DealType: domain.DealTypeSeller}
	assert.ErrorIs(t, ValidateReorder(base, other), ErrReorderCrossType)

	other = domain.Deal{ID: 2, PipelineStatusID: 2, DealType: domain.DealTypeBuyer}
	assert.NoError(t, ValidateReorder(base, other))
}
