package service

import (
	"context"
	"errors"
	"time"

	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"
)

var (
	ErrReorderSelf       = errors.New("cannot reorder a deal onto itself")
	ErrReorderCrossStage = errors.New("reorder targets must share a pipeline stage")
	ErrReorderCrossType  = errors.New("reorder targets must share a deal type")
)

type DealService struct {
	Deals    repository.DealRepository
	Statuses repository.StatusRepository
}

// PlanTransition computes the row changes for moving a deal into target.
// Entering the closed bucket stamps ClosedAt; leaving it clears the stamp.
// Moving a deal onto its current stage is a no-op.
func PlanTransition(deal domain.Deal, target domain.PipelineStatus, now time.Time) (repository.StageTransition, bool) {
	if deal.PipelineStatusID == target.ID {
		return repository.StageTransition{}, false
	}
	t := repository.StageTransition{
		StatusID:       target.ID,
		Stage:          target.Lifecycle,
		StageEnteredAt: now,
	}
	if target.Lifecycle == domain.StageClosed {
		t.ClosedAt = &now
	}
	return t, true
}

// ValidateReorder checks that dropping deal onto before is a legal
// within-column move.
func ValidateReorder(deal, before domain.Deal) error {
	if deal.ID == before.ID {
		return ErrReorderSelf
	}
	if deal.PipelineStatusID != before.PipelineStatusID {
		return ErrReorderCrossStage
	}
	if deal.DealType != before.DealType {
		return ErrReorderCrossType
	}
	return nil
}

// MoveToStatus transitions a deal into the target pipeline stage, recording a
// stage event. Returns the refreshed deal, or the unchanged deal when the
// move is a no-op.
func (s DealService) MoveToStatus(ctx context.Context, userIDs []int64, dealID, statusID int64) (*domain.Deal, error) {
	deal, err := s.Deals.Get(ctx, userIDs, dealID)
	if err != nil {
		return nil, err
	}
	target, err := s.Statuses.Get(ctx, statusID)
	if err != nil {
		return nil, err
	}
	t, ok := PlanTransition(*deal, *target, time.Now().UTC())
	if !ok {
		return deal, nil
	}
	if err := s.Deals.ApplyStageTransition(ctx, deal.ID, *deal, t); err != nil {
		return nil, err
	}
	return s.Deals.Get(ctx, userIDs, dealID)
}

// Reorder moves a deal directly above another deal in the same column.
func (s DealService) Reorder(ctx context.Context, userIDs []int64, dealID, beforeID int64) error {
	deal, err := s.Deals.Get(ctx, userIDs, dealID)
	if err != nil {
		return err
	}
	before, err := s.Deals.Get(ctx, userIDs, beforeID)
	if err != nil {
		return err
	}
	if err := ValidateReorder(*deal, *before); err != nil {
		return err
	}
	return s.Deals.ReorderBefore(ctx, *deal, *before)
}

// Archive marks a deal dead with a reason, moving it to the first stage in
// the dead bucket when one exists.
func (s DealService) Archive(ctx context.Context, userIDs []int64, dealID int64, reason string) (*domain.Deal, error) {
	deal, err := s.Deals.Get(ctx, userIDs, dealID)
	if err != nil {
		return nil, err
	}
	statuses, err := s.Statuses.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range statuses {
		if st.Lifecycle != domain.StageDead {
			continue
		}
		if t, ok := PlanTransition(*deal, st, time.Now().UTC()); ok {
			if err := s.Deals.ApplyStageTransition(ctx, deal.ID, *deal, t); err != nil {
				return nil, err
			}
		}
		break
	}
	if err := s.Deals.SetArchiveReason(ctx, userIDs, dealID, reason); err != nil {
		return nil, err
	}
	return s.Deals.Get(ctx, userIDs, dealID)
}
