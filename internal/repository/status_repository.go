package repository

import (
	"context"
	"errors"

	"pipelineiq-backend/internal/db"
	"pipelineiq-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

// ErrStatusInUse is returned when deleting a pipeline status that live
// deals still reference.
var ErrStatusInUse = errors.New("pipeline status is referenced by deals")

type StatusRepository struct {
	DB *db.Postgres
}

type SaveStatusInput struct {
	Name      string
	Color     string
	SortOrder int
	Lifecycle domain.LifecycleStage
}

func (r StatusRepository) Create(ctx context.Context, in SaveStatusInput) (*domain.PipelineStatus, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO pipeline_statuses (name, color, sort_order, lifecycle_stage, created_at, updated_at)
		VALUES ($1,$2,$3,$4, now(), now())
		RETURNING id, name, color, sort_order, lifecycle_stage, created_at, updated_at
	`, in.Name, in.Color, in.SortOrder, in.Lifecycle)
	return scanStatus(row)
}

func (r StatusRepository) Update(ctx context.Context, id int64, in SaveStatusInput) (*domain.PipelineStatus, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE pipeline_statuses
		SET name=$2, color=$3, sort_order=$4, lifecycle_stage=$5, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING id, name, color, sort_order, lifecycle_stage, created_at, updated_at
	`, id, in.Name, in.Color, in.SortOrder, in.Lifecycle)
	status, err := scanStatus(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return status, nil
}

func (r StatusRepository) Get(ctx context.Context, id int64) (*domain.PipelineStatus, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, name, color, sort_order, lifecycle_stage, created_at, updated_at
		FROM pipeline_statuses
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	status, err := scanStatus(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return status, nil
}

func (r StatusRepository) List(ctx context.Context) ([]domain.PipelineStatus, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, color, sort_order, lifecycle_stage, created_at, updated_at
		FROM pipeline_statuses
		WHERE deleted_at IS NULL
		ORDER BY sort_order ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var statuses []domain.PipelineStatus
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *s)
	}
	return statuses, rows.Err()
}

// Delete soft-deletes a status. Deleting a status still referenced by live
// deals is a business-rule failure, not a cascade.
func (r StatusRepository) Delete(ctx context.Context, id int64, deals DealRepository) error {
	count, err := deals.CountByStatus(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrStatusInUse
	}
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE pipeline_statuses SET deleted_at = now() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r StatusRepository) Reorder(ctx context.Context, orderedIDs []int64) error {
	return r.DB.InTx(ctx, func(tx pgx.Tx) error {
		for i, id := range orderedIDs {
			tag, err := tx.Exec(ctx, `
				UPDATE pipeline_statuses SET sort_order=$2, updated_at=now()
				WHERE id=$1 AND deleted_at IS NULL
			`, id, i+1)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
}

func scanStatus(row pgx.Row) (*domain.PipelineStatus, error) {
	var s domain.PipelineStatus
	var lifecycle string
	if err := row.Scan(&s.ID, &s.Name, &s.Color, &s.SortOrder, &lifecycle, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Lifecycle = domain.LifecycleStage(lifecycle)
	return &s, nil
}
