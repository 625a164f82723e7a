package repository

import (
	"context"
	"errors"

	"pipelineiq-backend/internal/db"
	"pipelineiq-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type TeamRepository struct {
	DB *db.Postgres
}

func (r TeamRepository) Create(ctx context.Context, name string, leadID *int64) (*domain.Team, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO teams (name, lead_user_id, created_at, updated_at)
		VALUES ($1,$2, now(), now())
		RETURNING id, name, lead_user_id, created_at, updated_at
	`, name, leadID)
	return scanTeam(row)
}

func (r TeamRepository) Get(ctx context.Context, id int64) (*domain.Team, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, name, lead_user_id, created_at, updated_at
		FROM teams WHERE id=$1
	`, id)
	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r TeamRepository) List(ctx context.Context) ([]domain.Team, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, lead_user_id, created_at, updated_at
		FROM teams ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var teams []domain.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var t domain.Team
	var leadID pgtype.Int8
	if err := row.Scan(&t.ID, &t.Name, &leadID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if leadID.Valid {
		t.LeadID = &leadID.Int64
	}
	return &t, nil
}
