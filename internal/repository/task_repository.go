package repository

import (
	"context"
	"errors"

	"pipelineiq-backend/internal/db"
	"pipelineiq-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type TaskRepository struct {
	DB *db.Postgres
}

type SaveTaskInput struct {
	DealID  *int64
	UserID  int64
	Title   string
	DueDate string
}

func (r TaskRepository) Create(ctx context.Context, in SaveTaskInput) (*domain.Task, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO tasks (deal_id, user_id, title, due_date, completed, created_at, updated_at)
		VALUES ($1,$2,$3, NULLIF($4,'')::date, false, now(), now())
		RETURNING `+taskColumns+`
	`, in.DealID, in.UserID, in.Title, in.DueDate)
	return scanTask(row)
}

// List returns tasks owned by the scope, soonest due first; tasks without a
// due date sort last.
func (r TaskRepository) List(ctx context.Context, userIDs []int64, includeCompleted bool, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE deleted_at IS NULL AND user_id = ANY($1)`
	if !includeCompleted {
		query += ` AND NOT completed`
	}
	query += ` ORDER BY due_date ASC NULLS LAST, id ASC LIMIT $2`
	rows, err := r.DB.Pool.Query(ctx, query, userIDs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ListByDeal returns tasks attached to one deal.
func (r TaskRepository) ListByDeal(ctx context.Context, userIDs []int64, dealID int64) ([]domain.Task, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE deleted_at IS NULL AND deal_id=$1 AND user_id = ANY($2)
		ORDER BY due_date ASC NULLS LAST, id ASC
	`, dealID, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r TaskRepository) SetCompleted(ctx context.Context, userIDs []int64, id int64, completed bool) (*domain.Task, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE tasks SET completed=$3, updated_at=now()
		WHERE id=$1 AND user_id = ANY($2) AND deleted_at IS NULL
		RETURNING `+taskColumns+`
	`, id, userIDs, completed)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

func (r TaskRepository) Delete(ctx context.Context, userIDs []int64, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE tasks SET deleted_at = now()
		WHERE id=$1 AND user_id = ANY($2) AND deleted_at IS NULL
	`, id, userIDs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const taskColumns = `id, deal_id, user_id, title, due_date, completed, created_at, updated_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var dealID pgtype.Int8
	var dueDate pgtype.Date
	if err := row.Scan(&t.ID, &dealID, &t.UserID, &t.Title, &dueDate, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if dealID.Valid {
		t.DealID = &dealID.Int64
	}
	if dueDate.Valid {
		t.DueDate = dueDate.Time.Format("2006-01-02")
	}
	return &t, nil
}
