package analytics

import "pipelineiq-backend/internal/domain"

// SalePrice returns the actual sale price when present, otherwise the
// expected one. Zero means neither is set.
func SalePrice(d domain.Deal) float64 {
	if d.ActualSalePrice != 0 {
		return d.ActualSalePrice
	}
	return d.ExpectedSalePrice
}

// GrossCommission is sale price times the gross commission rate.
func GrossCommission(d domain.Deal) float64 {
	return SalePrice(d) * d.GrossCommissionRate
}

// NetCommission derives the agent-side commission for a deal:
//
//	net = price*gross * (1-split) * (1-referral) - fee
//
// The referral factor applies only when a referral-out rate is set. Unset
// rate fields behave as zero, so a deal with no gross commission rate nets
// a negative fee at most. No rounding happens here; formatting is a
// presentation concern.
func NetCommission(d domain.Deal) float64 {
	afterSplit := GrossCommission(d) * (1 - d.BrokerageSplitRate)
	afterReferral := afterSplit
	if d.ReferralOutRate != 0 {
		afterReferral = afterSplit * (1 - d.ReferralOutRate)
	}
	return afterReferral - d.TransactionFee
}
