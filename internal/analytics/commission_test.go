package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelineiq-backend/internal/domain"
)

func TestNetCommission(t *testing.T) {
	tests := []struct {
		name string
		deal domain.Deal
		want float64
	}{
		{
			name: "full rate stack",
			deal: domain.Deal{
				ActualSalePrice:     500000,
				GrossCommissionRate: 0.03,
				BrokerageSplitRate:  0.2,
				ReferralOutRate:     0.25,
				TransactionFee:      200,
			},
			// gross 15000 -> after split 12000 -> after referral 9000 -> net 8800
			want: 8800,
		},
		{
			name: "no referral out",
			deal: domain.Deal{
				ActualSalePrice:     400000,
				GrossCommissionRate: 0.025,
				BrokerageSplitRate:  0.1,
				TransactionFee:      100,
			},
			want: 400000*0.025*0.9 - 100,
		},
		{
			name: "falls back to expected price",
			deal: domain.Deal{
				ExpectedSalePrice:   300000,
				GrossCommissionRate: 0.03,
			},
			want: 9000,
		},
		{
			name: "missing gross rate yields only the fee",
			deal: domain.Deal{
				ActualSalePrice: 500000,
				TransactionFee:  250,
			},
			want: -250,
		},
		{
			name: "empty deal",
			deal: domain.Deal{},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NetCommission(tt.deal), 1e-9)
		})
	}
}

func TestNetCommissionIsDeterministic(t *testing.T) {
	deal := domain.Deal{
		ActualSalePrice:     725000,
		GrossCommissionRate: 0.028,
		BrokerageSplitRate:  0.15,
		ReferralOutRate:     0.1,
		TransactionFee:      395,
	}
	first := NetCommission(deal)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, NetCommission(deal))
	}
}

func TestSalePricePrefersActual(t *testing.T) {
	deal := domain.Deal{ExpectedSalePrice: 300000, ActualSalePrice: 315000}
	assert.Equal(t, 315000.0, SalePrice(deal))

	deal.ActualSalePrice = 0
	assert.Equal(t, 300000.0, SalePrice(deal))
}
