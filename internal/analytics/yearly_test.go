package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelineiq-backend/internal/domain"
)

func closedDeal(closeDate string, created time.Time, dealType domain.DealType, price float64) domain.Deal {
	return domain.Deal{
		Status:              domain.StageClosed,
		DealType:            dealType,
		CloseDate:           closeDate,
		CreatedAt:           created,
		ActualSalePrice:     price,
		GrossCommissionRate: 0.03,
	}
}

func TestYearStats(t *testing.T) {
	created := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	deals := []domain.Deal{
		closedDeal("2024-03-15", created, domain.DealTypeBuyer, 400000),
		closedDeal("2024-06-20", created, domain.DealTypeSeller, 600000),
		closedDeal("2024-09-01", created, domain.DealTypeBuyerAndSeller, 500000),
		// wrong year: counts toward the closed year, not the created one
		closedDeal("2025-01-05", created, domain.DealTypeBuyer, 900000),
		// open deal, ignored
		{Status: domain.StageInProgress, ActualSalePrice: 700000, GrossCommissionRate: 0.03, CreatedAt: created},
	}

	stats := YearStats(deals, 2024)
	assert.Equal(t, 3, stats.ClosedDeals)
	assert.InDelta(t, 1500000, stats.TotalVolume, 1e-9)
	assert.InDelta(t, 45000, stats.TotalGCI, 1e-9)
	assert.InDelta(t, 500000, stats.AvgSalePrice, 1e-9)
	assert.InDelta(t, 15000, stats.AvgCommission, 1e-9)
	// buyer_and_seller increments both sides
	assert.Equal(t, 2, stats.BuyerDeals)
	assert.Equal(t, 2, stats.SellerDeals)
}

func TestYearStatsExcludesNegativeDaysToClose(t *testing.T) {
	created := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	deals := []domain.Deal{
		closedDeal("2024-06-11", created, domain.DealTypeBuyer, 100000), // 10 days
		closedDeal("2024-05-01", created, domain.DealTypeBuyer, 100000), // closed before created
	}

	stats := YearStats(deals, 2024)
	assert.Equal(t, 2, stats.ClosedDeals)
	// the anomaly is excluded from both numerator and denominator
	assert.InDelta(t, 10, stats.AvgDaysToClose, 1e-9)
}

func TestYearStatsEmpty(t *testing.T) {
	stats := YearStats(nil, 2024)
	assert.Zero(t, stats.ClosedDeals)
	assert.Zero(t, stats.AvgSalePrice)
	assert.Zero(t, stats.AvgDaysToClose)
}

func TestMonthlyRollup(t *testing.T) {
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	deals := []domain.Deal{
		closedDeal("2024-03-10", created, domain.DealTypeBuyer, 400000),
		closedDeal("2024-03-25", created, domain.DealTypeSeller, 200000),
		closedDeal("2024-11-02", created, domain.DealTypeBuyer, 300000),
	}

	buckets := MonthlyRollup(deals, 2024)
	require.Len(t, buckets, 12)

	assert.Equal(t, 2, buckets[2].Deals)
	assert.Equal(t, 1, buckets[10].Deals)
	assert.Zero(t, buckets[0].Deals)

	var bucketSum float64
	for _, b := range buckets {
		bucketSum += b.GCI
	}
	assert.InDelta(t, YearStats(deals, 2024).TotalGCI, bucketSum, 1e-9)
}

func TestBestWorstMonth(t *testing.T) {
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	deals := []domain.Deal{
		closedDeal("2024-03-10", created, domain.DealTypeBuyer, 400000),
		closedDeal("2024-07-10", created, domain.DealTypeBuyer, 100000),
	}
	buckets := MonthlyRollup(deals, 2024)

	best, ok := BestMonth(buckets)
	require.True(t, ok)
	assert.Equal(t, time.March, best.Month)

	worst, ok := WorstMonth(buckets)
	require.True(t, ok)
	assert.Equal(t, time.July, worst.Month)
}

func TestBestWorstMonthSingleProducingMonth(t *testing.T) {
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	buckets := MonthlyRollup([]domain.Deal{
		closedDeal("2024-03-10", created, domain.DealTypeBuyer, 400000),
	}, 2024)

	best, ok := BestMonth(buckets)
	require.True(t, ok)
	worst, ok := WorstMonth(buckets)
	require.True(t, ok)
	// a single producing month has no distinct worst month
	assert.Equal(t, best, worst)
}

func TestBestMonthNoProduction(t *testing.T) {
	_, ok := BestMonth(MonthlyRollup(nil, 2024))
	assert.False(t, ok)
}

func TestGoalPace(t *testing.T) {
	assert.InDelta(t, 100000, GoalPace(50000, 0.5), 1e-9)
	// zero elapsed fraction falls back to the current GCI
	assert.InDelta(t, 50000, GoalPace(50000, 0), 1e-9)
}
