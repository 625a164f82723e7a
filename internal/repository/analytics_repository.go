package repository

import (
	"context"
	"time"

	"pipelineiq-backend/internal/analytics"
	"pipelineiq-backend/internal/db"
)

// AnalyticsRepository computes the yearly summary server-side in one SQL
// pass. It must agree with the in-process aggregation engine: same net
// commission formula, same close-date-falling-back-to-closed_at basis, and
// the same exclusion of closed-before-created anomalies from days-to-close.
type AnalyticsRepository struct {
	DB *db.Postgres
}

// netCommissionSQL mirrors analytics.NetCommission.
const netCommissionSQL = `
	(COALESCE(NULLIF(d.actual_sale_price,0), NULLIF(d.expected_sale_price,0), 0)
		* COALESCE(d.gross_commission_rate,0)
		* (1 - COALESCE(d.brokerage_split_rate,0))
		* CASE WHEN COALESCE(d.referral_out_rate,0) = 0 THEN 1 ELSE 1 - d.referral_out_rate END)
	- COALESCE(d.transaction_fee,0)`

// closeBasisSQL mirrors analytics.CloseTime. Both operands are plain
// timestamps so EXTRACT stays UTC regardless of the session TimeZone.
const closeBasisSQL = `COALESCE(d.close_date::timestamp, d.closed_at AT TIME ZONE 'UTC')`

// YearSummary aggregates closed deals for a year into the same shape the
// in-process engine produces.
func (r AnalyticsRepository) YearSummary(ctx context.Context, userIDs []int64, year int) (analytics.YearlyStats, error) {
	stats := analytics.YearlyStats{Year: year}
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(COALESCE(NULLIF(d.actual_sale_price,0), NULLIF(d.expected_sale_price,0), 0)),0),
			COALESCE(SUM(`+netCommissionSQL+`),0),
			COALESCE(AVG(COALESCE(NULLIF(d.actual_sale_price,0), NULLIF(d.expected_sale_price,0), 0)),0),
			COALESCE(AVG(`+netCommissionSQL+`),0),
			COUNT(*) FILTER (WHERE d.deal_type IN ('buyer','buyer_and_seller')),
			COUNT(*) FILTER (WHERE d.deal_type IN ('seller','buyer_and_seller')),
			COALESCE(AVG(EXTRACT(EPOCH FROM `+closeBasisSQL+` - d.created_at AT TIME ZONE 'UTC')/86400)
				FILTER (WHERE `+closeBasisSQL+` >= d.created_at AT TIME ZONE 'UTC'),0)
		FROM deals d
		WHERE d.deleted_at IS NULL
		  AND d.user_id = ANY($1)
		  AND d.status = 'closed'
		  AND EXTRACT(YEAR FROM `+closeBasisSQL+`) = $2
	`, userIDs, year).Scan(
		&stats.ClosedDeals, &stats.TotalVolume, &stats.TotalGCI,
		&stats.AvgSalePrice, &stats.AvgCommission,
		&stats.BuyerDeals, &stats.SellerDeals, &stats.AvgDaysToClose,
	)
	return stats, err
}

// MonthlyRollup returns the twelve fixed month buckets for a year,
// zero-filled where no deals closed.
func (r AnalyticsRepository) MonthlyRollup(ctx context.Context, userIDs []int64, year int) ([]analytics.MonthBucket, error) {
	buckets := make([]analytics.MonthBucket, 12)
	for i := range buckets {
		buckets[i].Month = time.Month(i + 1)
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT EXTRACT(MONTH FROM `+closeBasisSQL+`)::int,
		       COALESCE(SUM(`+netCommissionSQL+`),0),
		       COUNT(*)
		FROM deals d
		WHERE d.deleted_at IS NULL
		  AND d.user_id = ANY($1)
		  AND d.status = 'closed'
		  AND EXTRACT(YEAR FROM `+closeBasisSQL+`) = $2
		GROUP BY 1
		ORDER BY 1
	`, userIDs, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var month int
		var gci float64
		var count int
		if err := rows.Scan(&month, &gci, &count); err != nil {
			return nil, err
		}
		if month >= 1 && month <= 12 {
			buckets[month-1].GCI = gci
			buckets[month-1].Deals = count
		}
	}
	return buckets, rows.Err()
}

// LeadCount returns the created-cohort size for a year, the denominator of
// lead conversion.
func (r AnalyticsRepository) LeadCount(ctx context.Context, userIDs []int64, year int) (int64, error) {
	var count int64
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM deals d
		WHERE d.deleted_at IS NULL
		  AND d.user_id = ANY($1)
		  AND EXTRACT(YEAR FROM d.created_at AT TIME ZONE 'UTC') = $2
	`, userIDs, year).Scan(&count)
	return count, err
}
