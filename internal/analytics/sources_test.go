package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelineiq-backend/internal/domain"
)

func sourcedDeal(sourceID int64, sourceName string, status domain.LifecycleStage, created time.Time, price float64) domain.Deal {
	d := domain.Deal{
		Status:              status,
		CreatedAt:           created,
		ActualSalePrice:     price,
		GrossCommissionRate: 0.03,
		LeadSourceID:        &sourceID,
		LeadSource:          &domain.LeadSource{ID: sourceID, Name: sourceName},
	}
	if status == domain.StageClosed {
		d.CloseDate = created.Format("2006-01-02")
	}
	return d
}

func TestLeadSourcePerformance(t *testing.T) {
	created := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	deals := []domain.Deal{
		sourcedDeal(1, "Referral", domain.StageClosed, created, 500000),
		sourcedDeal(1, "Referral", domain.StageInProgress, created, 0),
		sourcedDeal(2, "Zillow", domain.StageClosed, created, 200000),
		sourcedDeal(2, "Zillow", domain.StageClosed, created, 100000),
		// prior-year cohort is excluded
		sourcedDeal(1, "Referral", domain.StageClosed, created.AddDate(-1, 0, 0), 900000),
	}

	perf := LeadSourcePerformance(deals, 2024)
	require.Len(t, perf, 2)

	// sorted by total commission descending
	assert.Equal(t, "Referral", perf[0].Source)
	assert.Equal(t, 2, perf[0].TotalDeals)
	assert.Equal(t, 1, perf[0].ClosedDeals)
	assert.InDelta(t, 50, perf[0].ConversionRate, 1e-9)
	assert.InDelta(t, 15000, perf[0].TotalCommission, 1e-9)

	assert.Equal(t, "Zillow", perf[1].Source)
	assert.InDelta(t, 100, perf[1].ConversionRate, 1e-9)
	assert.InDelta(t, 9000, perf[1].TotalCommission, 1e-9)
}

func TestLeadSourcePerformanceZeroDeals(t *testing.T) {
	// empty input: the conversion rate must be 0, never NaN
	assert.Empty(t, LeadSourcePerformance(nil, 2024))

	created := time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC)
	deals := []domain.Deal{sourcedDeal(1, "Referral", domain.StageClosed, created, 500000)}
	assert.Empty(t, LeadSourcePerformance(deals, 2024))
}

func TestLeadSourcePerformanceUnknownSource(t *testing.T) {
	created := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	deals := []domain.Deal{{Status: domain.StageNew, CreatedAt: created}}

	perf := LeadSourcePerformance(deals, 2024)
	require.Len(t, perf, 1)
	assert.Equal(t, "Unknown", perf[0].Source)
	assert.Zero(t, perf[0].ConversionRate)
}

func TestArchiveReasons(t *testing.T) {
	created := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	deals := []domain.Deal{
		{Status: domain.StageDead, CreatedAt: created, ArchiveReason: "lost to competitor"},
		{Status: domain.StageDead, CreatedAt: created, ArchiveReason: "lost to competitor"},
		{Status: domain.StageDead, CreatedAt: created, ArchiveReason: "financing fell through"},
		{Status: domain.StageDead, CreatedAt: created},
		{Status: domain.StageClosed, CreatedAt: created, CloseDate: "2024-02-20"},
	}

	reasons := ArchiveReasons(deals, 2024)
	require.Len(t, reasons, 3)
	assert.Equal(t, "lost to competitor", reasons[0].Reason)
	assert.Equal(t, 2, reasons[0].Count)
	assert.InDelta(t, 50, reasons[0].Percent, 1e-9)

	var total float64
	for _, r := range reasons {
		total += r.Percent
	}
	assert.InDelta(t, 100, total, 1e-9)
}
