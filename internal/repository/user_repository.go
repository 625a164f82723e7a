package repository

import (
	"context"
	"errors"

	"pipelineiq-backend/internal/db"
	"pipelineiq-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type UserRepository struct {
	DB *db.Postgres
}

type CreateUserParams struct {
	Name         string
	Email        string
	Phone        string
	Role         domain.UserRole
	TeamID       *int64
	PasswordHash *string
	IsGoogle     bool
}

func (r UserRepository) Create(ctx context.Context, p CreateUserParams) (*domain.User, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO users (name, email, phone, role, team_id, password_hash, is_google, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,true, now(), now())
		RETURNING `+userColumns+`
	`, p.Name, p.Email, p.Phone, p.Role, p.TeamID, p.PasswordHash, p.IsGoogle)
	return scanUser(row)
}

func (r UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email=$1 AND deleted_at IS NULL
	`, email)
	return scanUserNotFound(row)
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	return scanUserNotFound(row)
}

func (r UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListActiveIDs returns every active member id, the admin visibility set.
func (r UserRepository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id FROM users WHERE deleted_at IS NULL AND active
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListTeamMemberIDs returns active member ids belonging to a team.
func (r UserRepository) ListTeamMemberIDs(ctx context.Context, teamID int64) ([]int64, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id FROM users WHERE deleted_at IS NULL AND active AND team_id=$1
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type UpdateUserParams struct {
	Role   *domain.UserRole
	TeamID *int64
	Active *bool
}

func (r UserRepository) Update(ctx context.Context, id int64, p UpdateUserParams) (*domain.User, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE users SET
			role = COALESCE($2, role),
			team_id = COALESCE($3, team_id),
			active = COALESCE($4, active),
			updated_at = now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+userColumns+`
	`, id, p.Role, p.TeamID, p.Active)
	return scanUserNotFound(row)
}

func (r UserRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.Pool.Exec(ctx, `UPDATE users SET deleted_at = now(), active=false WHERE id=$1`, id)
	return err
}

const userColumns = `id, name, email, phone, role, team_id, password_hash, is_google, active, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role string
	var teamID pgtype.Int8
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &role, &teamID, &u.PasswordHash, &u.IsGoogle, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = domain.UserRole(role)
	if teamID.Valid {
		u.TeamID = &teamID.Int64
	}
	return &u, nil
}

func scanUserNotFound(row pgx.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// IsDuplicate detects unique constraint violation.
func IsDuplicate(err error) bool {
	return db.IsUniqueViolation(err)
}
