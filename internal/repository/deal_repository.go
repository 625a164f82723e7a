package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pipelineiq-backend/internal/db"
	"pipelineiq-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type DealRepository struct {
	DB *db.Postgres
}

// DealFilter narrows deal queries. UserIDs is the resolved visibility scope
// and is always required; the rest mirror the pipeline view's filter
// selections (comma-joined id lists in the SPA's URL).
type DealFilter struct {
	UserIDs       []int64
	StatusIDs     []int64
	LeadSourceIDs []int64
	DealTypes     []string
	Stages        []string
	CreatedYear   int
}

type CreateDealInput struct {
	UserID              int64
	ClientName          string
	ClientEmail         string
	ClientPhone         string
	PropertyAddress     string
	DealType            domain.DealType
	PipelineStatusID    int64
	Lifecycle           domain.LifecycleStage
	LeadSourceID        *int64
	ExpectedSalePrice   float64
	GrossCommissionRate float64
	BrokerageSplitRate  float64
	ReferralOutRate     float64
	TransactionFee      float64
	CloseDate           string
}

type UpdateDealInput struct {
	ClientName          *string
	ClientEmail         *string
	ClientPhone         *string
	PropertyAddress     *string
	DealType            *domain.DealType
	LeadSourceID        *int64
	ExpectedSalePrice   *float64
	ActualSalePrice     *float64
	GrossCommissionRate *float64
	BrokerageSplitRate  *float64
	ReferralOutRate     *float64
	TransactionFee      *float64
	CloseDate           *string
}

// StageTransition is the computed effect of moving a deal into a pipeline
// stage. A nil ClosedAt clears the stamp.
type StageTransition struct {
	StatusID       int64
	Stage          domain.LifecycleStage
	StageEnteredAt time.Time
	ClosedAt       *time.Time
}

const dealColumns = `
	d.id, d.user_id, d.client_name, d.client_email, d.client_phone, d.property_address,
	d.deal_type, d.status, d.pipeline_status_id, d.lead_source_id, d.archive_reason,
	COALESCE(d.expected_sale_price,0), COALESCE(d.actual_sale_price,0),
	COALESCE(d.gross_commission_rate,0), COALESCE(d.brokerage_split_rate,0),
	COALESCE(d.referral_out_rate,0), COALESCE(d.transaction_fee,0),
	d.sort_order, d.close_date, d.stage_entered_at, d.closed_at, d.created_at, d.updated_at,
	ps.id, ps.name, ps.color, ps.sort_order, ps.lifecycle_stage,
	ls.id, ls.name`

const dealJoins = `
	FROM deals d
	JOIN pipeline_statuses ps ON ps.id = d.pipeline_status_id
	LEFT JOIN lead_sources ls ON ls.id = d.lead_source_id`

// Create inserts the deal at the end of its stage and records the entry
// stage event in the same transaction.
func (r DealRepository) Create(ctx context.Context, in CreateDealInput) (*domain.Deal, error) {
	var id int64
	err := r.DB.InTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO deals
			(user_id, client_name, client_email, client_phone, property_address, deal_type,
			 status, pipeline_status_id, lead_source_id,
			 expected_sale_price, gross_commission_rate, brokerage_split_rate, referral_out_rate, transaction_fee,
			 sort_order, close_date, stage_entered_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,
				(SELECT COALESCE(MAX(sort_order),0)+1 FROM deals WHERE pipeline_status_id=$8 AND deleted_at IS NULL),
				NULLIF($15,'')::date, now(), now(), now())
			RETURNING id
		`, in.UserID, in.ClientName, in.ClientEmail, in.ClientPhone, in.PropertyAddress, in.DealType,
			in.Lifecycle, in.PipelineStatusID, in.LeadSourceID,
			in.ExpectedSalePrice, in.GrossCommissionRate, in.BrokerageSplitRate, in.ReferralOutRate, in.TransactionFee,
			in.CloseDate).Scan(&id)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO deal_stage_events (deal_id, from_status_id, to_status_id, from_stage, to_stage, occurred_at)
			VALUES ($1, NULL, $2, '', $3, now())
		`, id, in.PipelineStatusID, in.Lifecycle)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, nil, id)
}

// Get fetches a deal with its joined pipeline status and lead source. A
// non-empty userIDs list restricts visibility to those owners.
func (r DealRepository) Get(ctx context.Context, userIDs []int64, id int64) (*domain.Deal, error) {
	query := `SELECT ` + dealColumns + dealJoins + `
		WHERE d.id=$1 AND d.deleted_at IS NULL`
	args := []any{id}
	if len(userIDs) > 0 {
		query += ` AND d.user_id = ANY($2)`
		args = append(args, userIDs)
	}
	row := r.DB.Pool.QueryRow(ctx, query, args...)
	deal, err := scanDeal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return deal, nil
}

// List returns deals matching the filter, kanban-ordered (stage order, then
// sort order within stage).
func (r DealRepository) List(ctx context.Context, f DealFilter, limit int) ([]domain.Deal, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := `SELECT ` + dealColumns + dealJoins + `
		WHERE d.deleted_at IS NULL AND d.user_id = ANY($1)`
	args := []any{f.UserIDs}
	if len(f.StatusIDs) > 0 {
		args = append(args, f.StatusIDs)
		query += fmt.Sprintf(" AND d.pipeline_status_id = ANY($%d)", len(args))
	}
	if len(f.LeadSourceIDs) > 0 {
		args = append(args, f.LeadSourceIDs)
		query += fmt.Sprintf(" AND d.lead_source_id = ANY($%d)", len(args))
	}
	if len(f.DealTypes) > 0 {
		args = append(args, f.DealTypes)
		query += fmt.Sprintf(" AND d.deal_type = ANY($%d)", len(args))
	}
	if len(f.Stages) > 0 {
		args = append(args, f.Stages)
		query += fmt.Sprintf(" AND d.status = ANY($%d)", len(args))
	}
	if f.CreatedYear > 0 {
		args = append(args, f.CreatedYear)
		query += fmt.Sprintf(" AND EXTRACT(YEAR FROM d.created_at) = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY ps.sort_order ASC, d.sort_order ASC, d.id ASC LIMIT $%d", len(args))

	rows, err := r.DB.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var deals []domain.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *deal)
	}
	return deals, rows.Err()
}

func (r DealRepository) Update(ctx context.Context, userIDs []int64, id int64, in UpdateDealInput) (*domain.Deal, error) {
	var closeDate *string
	if in.CloseDate != nil {
		closeDate = in.CloseDate
	}
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE deals SET
			client_name = COALESCE($3, client_name),
			client_email = COALESCE($4, client_email),
			client_phone = COALESCE($5, client_phone),
			property_address = COALESCE($6, property_address),
			deal_type = COALESCE($7, deal_type),
			lead_source_id = COALESCE($8, lead_source_id),
			expected_sale_price = COALESCE($9, expected_sale_price),
			actual_sale_price = COALESCE($10, actual_sale_price),
			gross_commission_rate = COALESCE($11, gross_commission_rate),
			brokerage_split_rate = COALESCE($12, brokerage_split_rate),
			referral_out_rate = COALESCE($13, referral_out_rate),
			transaction_fee = COALESCE($14, transaction_fee),
			close_date = COALESCE(NULLIF($15,'')::date, close_date),
			updated_at = now()
		WHERE id=$1 AND user_id = ANY($2) AND deleted_at IS NULL
	`, id, userIDs, in.ClientName, in.ClientEmail, in.ClientPhone, in.PropertyAddress, in.DealType,
		in.LeadSourceID, in.ExpectedSalePrice, in.ActualSalePrice, in.GrossCommissionRate,
		in.BrokerageSplitRate, in.ReferralOutRate, in.TransactionFee, derefOrEmpty(closeDate))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, userIDs, id)
}

// ApplyStageTransition updates the deal's stage fields and appends the
// stage event atomically.
func (r DealRepository) ApplyStageTransition(ctx context.Context, dealID int64, from domain.Deal, t StageTransition) error {
	return r.DB.InTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE deals SET
				pipeline_status_id=$2, status=$3, stage_entered_at=$4, closed_at=$5,
				sort_order=(SELECT COALESCE(MAX(sort_order),0)+1 FROM deals WHERE pipeline_status_id=$2 AND deleted_at IS NULL),
				updated_at=now()
			WHERE id=$1 AND deleted_at IS NULL
		`, dealID, t.StatusID, t.Stage, t.StageEnteredAt, t.ClosedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO deal_stage_events (deal_id, from_status_id, to_status_id, from_stage, to_stage, occurred_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, dealID, from.PipelineStatusID, t.StatusID, from.Status, t.Stage, t.StageEnteredAt)
		return err
	})
}

// ReorderBefore slots the deal into before's position within the same
// stage, shifting trailing deals down by one.
func (r DealRepository) ReorderBefore(ctx context.Context, deal, before domain.Deal) error {
	return r.DB.InTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE deals SET sort_order = sort_order + 1, updated_at = now()
			WHERE pipeline_status_id=$1 AND sort_order >= $2 AND id <> $3 AND deleted_at IS NULL
		`, before.PipelineStatusID, before.SortOrder, deal.ID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE deals SET sort_order = $2, updated_at = now() WHERE id=$1
		`, deal.ID, before.SortOrder)
		return err
	})
}

// SetArchiveReason stamps the free-text reason on a dead deal.
func (r DealRepository) SetArchiveReason(ctx context.Context, userIDs []int64, id int64, reason string) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE deals SET archive_reason=$3, updated_at=now()
		WHERE id=$1 AND user_id = ANY($2) AND deleted_at IS NULL
	`, id, userIDs, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MigrateStatus moves every deal in one pipeline status to another,
// recording a stage event each. Used when applying pipeline templates and
// when deleting statuses that still hold deals.
func (r DealRepository) MigrateStatus(ctx context.Context, fromStatusID int64, t StageTransition) (int64, error) {
	var moved int64
	err := r.DB.InTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, status FROM deals
			WHERE pipeline_status_id=$1 AND deleted_at IS NULL
		`, fromStatusID)
		if err != nil {
			return err
		}
		type current struct {
			id    int64
			stage string
		}
		var targets []current
		for rows.Next() {
			var c current
			if err := rows.Scan(&c.id, &c.stage); err != nil {
				rows.Close()
				return err
			}
			targets = append(targets, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, c := range targets {
			_, err := tx.Exec(ctx, `
				UPDATE deals SET pipeline_status_id=$2, status=$3, stage_entered_at=$4, closed_at=$5, updated_at=now()
				WHERE id=$1
			`, c.id, t.StatusID, t.Stage, t.StageEnteredAt, t.ClosedAt)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO deal_stage_events (deal_id, from_status_id, to_status_id, from_stage, to_stage, occurred_at)
				VALUES ($1,$2,$3,$4,$5,$6)
			`, c.id, fromStatusID, t.StatusID, c.stage, t.Stage, t.StageEnteredAt)
			if err != nil {
				return err
			}
		}
		moved = int64(len(targets))
		return nil
	})
	return moved, err
}

// BulkDelete soft-deletes the given deals within the visibility scope.
func (r DealRepository) BulkDelete(ctx context.Context, userIDs []int64, ids []int64) (int64, error) {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE deals SET deleted_at = now()
		WHERE id = ANY($1) AND user_id = ANY($2) AND deleted_at IS NULL
	`, ids, userIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountByStatus counts live deals referencing a pipeline status.
func (r DealRepository) CountByStatus(ctx context.Context, statusID int64) (int64, error) {
	var count int64
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM deals WHERE pipeline_status_id=$1 AND deleted_at IS NULL
	`, statusID).Scan(&count)
	return count, err
}

// ListStageEvents returns stage events for deals owned by the scope,
// oldest first.
func (r DealRepository) ListStageEvents(ctx context.Context, userIDs []int64) ([]domain.DealStageEvent, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT e.id, e.deal_id, e.from_status_id, e.to_status_id, e.from_stage, e.to_stage, e.occurred_at
		FROM deal_stage_events e
		JOIN deals d ON d.id = e.deal_id
		WHERE d.deleted_at IS NULL AND d.user_id = ANY($1)
		ORDER BY e.occurred_at ASC, e.id ASC
	`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []domain.DealStageEvent
	for rows.Next() {
		var e domain.DealStageEvent
		var fromStatus pgtype.Int8
		var fromStage, toStage string
		if err := rows.Scan(&e.ID, &e.DealID, &fromStatus, &e.ToStatusID, &fromStage, &toStage, &e.OccurredAt); err != nil {
			return nil, err
		}
		if fromStatus.Valid {
			e.FromStatusID = &fromStatus.Int64
		}
		e.FromStage = domain.LifecycleStage(fromStage)
		e.ToStage = domain.LifecycleStage(toStage)
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanDeal(row pgx.Row) (*domain.Deal, error) {
	var d domain.Deal
	var dealType, status string
	var leadSourceID pgtype.Int8
	var archiveReason pgtype.Text
	var closeDate pgtype.Date
	var closedAt pgtype.Timestamptz
	var psID int64
	var psName, psColor string
	var psSort int
	var psLifecycle string
	var lsID pgtype.Int8
	var lsName pgtype.Text

	if err := row.Scan(
		&d.ID, &d.UserID, &d.ClientName, &d.ClientEmail, &d.ClientPhone, &d.PropertyAddress,
		&dealType, &status, &d.PipelineStatusID, &leadSourceID, &archiveReason,
		&d.ExpectedSalePrice, &d.ActualSalePrice,
		&d.GrossCommissionRate, &d.BrokerageSplitRate,
		&d.ReferralOutRate, &d.TransactionFee,
		&d.SortOrder, &closeDate, &d.StageEnteredAt, &closedAt, &d.CreatedAt, &d.UpdatedAt,
		&psID, &psName, &psColor, &psSort, &psLifecycle,
		&lsID, &lsName,
	); err != nil {
		return nil, err
	}
	d.DealType = domain.DealType(dealType)
	d.Status = domain.LifecycleStage(status)
	if leadSourceID.Valid {
		d.LeadSourceID = &leadSourceID.Int64
	}
	d.ArchiveReason = archiveReason.String
	if closeDate.Valid {
		d.CloseDate = closeDate.Time.Format("2006-01-02")
	}
	if closedAt.Valid {
		t := closedAt.Time
		d.ClosedAt = &t
	}
	d.PipelineStatus = &domain.PipelineStatus{
		ID: psID, Name: psName, Color: psColor, SortOrder: psSort,
		Lifecycle: domain.LifecycleStage(psLifecycle),
	}
	if lsID.Valid {
		d.LeadSource = &domain.LeadSource{ID: lsID.Int64, Name: lsName.String}
	}
	return &d, nil
}

func derefOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
