package repository

import (
	"context"

	"pipelineiq-backend/internal/db"
	"pipelineiq-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type SettingsRepository struct {
	DB *db.Postgres
}

func (r SettingsRepository) Get(ctx context.Context) (*domain.WorkspaceSettings, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT business_name, currency_code, annual_gci_goal, updated_at
		FROM workspace_settings
		WHERE id=1
	`)
	var s domain.WorkspaceSettings
	if err := row.Scan(&s.BusinessName, &s.CurrencyCode, &s.AnnualGCIGoal, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return &domain.WorkspaceSettings{CurrencyCode: "USD"}, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r SettingsRepository) Save(ctx context.Context, s domain.WorkspaceSettings) (*domain.WorkspaceSettings, error) {
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO workspace_settings (id, business_name, currency_code, annual_gci_goal, updated_at)
		VALUES (1,$1,$2,$3, now())
		ON CONFLICT (id) DO UPDATE SET
			business_name=EXCLUDED.business_name,
			currency_code=EXCLUDED.currency_code,
			annual_gci_goal=EXCLUDED.annual_gci_goal,
			updated_at=now()
		RETURNING business_name, currency_code, annual_gci_goal, updated_at
	`, s.BusinessName, s.CurrencyCode, s.AnnualGCIGoal).Scan(
		&s.BusinessName, &s.CurrencyCode, &s.AnnualGCIGoal, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
