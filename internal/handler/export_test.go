package handler

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"pipelineiq-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportFixture() domain.Deal {
	source := domain.LeadSource{ID: 2, Name: "Referral"}
	return domain.Deal{
		ID:                  42,
		ClientName:          `Smith, "Jonny" & Co`,
		ClientEmail:         "smith@example.com",
		DealType:            domain.DealTypeSeller,
		Status:              domain.StageClosed,
		ActualSalePrice:     500000,
		GrossCommissionRate: 0.03,
		BrokerageSplitRate:  0.2,
		ReferralOutRate:     0.25,
		TransactionFee:      200,
		CloseDate:           "2024-11-30",
		CreatedAt:           time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		PipelineStatus:      &domain.PipelineStatus{ID: 9, Name: "Closed Won", Lifecycle: domain.StageClosed},
		LeadSource:          &source,
	}
}

func TestDealsToCSVEscapesSpecialCharacters(t *testing.T) {
	data, err := dealsToCSV([]domain.Deal{exportFixture()})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])

	row := records[1]
	assert.Equal(t, `Smith, "Jonny" & Co`, row[1])
	assert.Equal(t, "Closed Won", row[6])
	assert.Equal(t, "Referral", row[8])
	// 500000*0.03*0.8*0.75 - 200
	assert.Equal(t, "8800.00", row[12])
}

func TestDealsToCSVEmptySetStillHasHeader(t *testing.T) {
	data, err := dealsToCSV(nil)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestDealsToXLSXRoundTrip(t *testing.T) {
	data, err := dealsToXLSX([]domain.Deal{exportFixture()})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// xlsx files are zip archives
	assert.Equal(t, byte('P'), data[0])
	assert.Equal(t, byte('K'), data[1])
}
