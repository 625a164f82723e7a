package repository

import (
	"context"
	"errors"

	"pipelineiq-backend/internal/db"
	"pipelineiq-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type LeadSourceRepository struct {
	DB *db.Postgres
}

func (r LeadSourceRepository) Create(ctx context.Context, name string) (*domain.LeadSource, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO lead_sources (name, created_at, updated_at)
		VALUES ($1, now(), now())
		RETURNING id, name, created_at, updated_at
	`, name)
	return scanLeadSource(row)
}

func (r LeadSourceRepository) List(ctx context.Context) ([]domain.LeadSource, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM lead_sources
		WHERE deleted_at IS NULL
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sources []domain.LeadSource
	for rows.Next() {
		s, err := scanLeadSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}

func (r LeadSourceRepository) Update(ctx context.Context, id int64, name string) (*domain.LeadSource, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE lead_sources SET name=$2, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING id, name, created_at, updated_at
	`, id, name)
	source, err := scanLeadSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return source, nil
}

func (r LeadSourceRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE lead_sources SET deleted_at = now() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedDefaults installs the common acquisition channels once.
func (r LeadSourceRepository) SeedDefaults(ctx context.Context) error {
	defaults := []string{"Referral", "Zillow", "Open House", "Website", "Social Media", "Past Client", "Sphere"}
	for _, name := range defaults {
		_, err := r.DB.Pool.Exec(ctx, `
			INSERT INTO lead_sources (name, created_at, updated_at)
			VALUES ($1, now(), now())
			ON CONFLICT (name) DO NOTHING
		`, name)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanLeadSource(row pgx.Row) (*domain.LeadSource, error) {
	var s domain.LeadSource
	if err := row.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
