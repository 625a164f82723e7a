package analytics

import (
	"time"

	"pipelineiq-backend/internal/domain"
)

// YearlyStats summarizes closed deals for one calendar year on the
// close-date basis.
type YearlyStats struct {
	Year           int     `json:"year"`
	ClosedDeals    int     `json:"closedDeals"`
	TotalVolume    float64 `json:"totalVolume"`
	TotalGCI       float64 `json:"totalGci"`
	AvgSalePrice   float64 `json:"avgSalePrice"`
	AvgCommission  float64 `json:"avgCommission"`
	BuyerDeals     int     `json:"buyerDeals"`
	SellerDeals    int     `json:"sellerDeals"`
	AvgDaysToClose float64 `json:"avgDaysToClose"`
}

// MonthBucket is one of the twelve fixed monthly rollup entries.
type MonthBucket struct {
	Month time.Month `json:"month"`
	GCI   float64    `json:"gci"`
	Deals int        `json:"deals"`
}

// closedInYear reports whether the deal is closed with a resolvable close
// time inside the given year.
func closedInYear(d domain.Deal, year int) (time.Time, bool) {
	if d.Status != domain.StageClosed {
		return time.Time{}, false
	}
	t, ok := CloseTime(d)
	if !ok || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// YearStats folds the deal set into yearly closed-deal statistics. A
// buyer_and_seller deal counts toward both buyer and seller totals. Deals
// whose close time precedes their creation (data anomalies) contribute
// neither to the days-to-close average nor its denominator.
func YearStats(deals []domain.Deal, year int) YearlyStats {
	stats := YearlyStats{Year: year}
	var daysTotal float64
	var daysCount int
	for _, d := range deals {
		closedAt, ok := closedInYear(d, year)
		if !ok {
			continue
		}
		stats.ClosedDeals++
		stats.TotalVolume += SalePrice(d)
		stats.TotalGCI += NetCommission(d)
		switch d.DealType {
		case domain.DealTypeBuyer:
			stats.BuyerDeals++
		case domain.DealTypeSeller:
			stats.SellerDeals++
		case domain.DealTypeBuyerAndSeller:
			stats.BuyerDeals++
			stats.SellerDeals++
		}
		if days := closedAt.Sub(d.CreatedAt).Hours() / 24; days >= 0 {
			daysTotal += days
			daysCount++
		}
	}
	if stats.ClosedDeals > 0 {
		stats.AvgSalePrice = stats.TotalVolume / float64(stats.ClosedDeals)
		stats.AvgCommission = stats.TotalGCI / float64(stats.ClosedDeals)
	}
	if daysCount > 0 {
		stats.AvgDaysToClose = daysTotal / float64(daysCount)
	}
	return stats
}

// MonthlyRollup accumulates GCI and deal count per close-date month. The
// result always has exactly twelve buckets, January through December.
func MonthlyRollup(deals []domain.Deal, year int) []MonthBucket {
	buckets := make([]MonthBucket, 12)
	for i := range buckets {
		buckets[i].Month = time.Month(i + 1)
	}
	for _, d := range deals {
		closedAt, ok := closedInYear(d, year)
		if !ok {
			continue
		}
		b := &buckets[int(closedAt.Month())-1]
		b.GCI += NetCommission(d)
		b.Deals++
	}
	return buckets
}

// BestMonth returns the highest-GCI bucket among months that produced any
// GCI. ok is false for a year with no producing month.
func BestMonth(buckets []MonthBucket) (MonthBucket, bool) {
	return pickMonth(buckets, func(candidate, current MonthBucket) bool {
		return candidate.GCI > current.GCI
	})
}

// WorstMonth returns the lowest-GCI bucket among producing months only; a
// zero month is absence of data, not a bad month.
func WorstMonth(buckets []MonthBucket) (MonthBucket, bool) {
	return pickMonth(buckets, func(candidate, current MonthBucket) bool {
		return candidate.GCI < current.GCI
	})
}

func pickMonth(buckets []MonthBucket, better func(candidate, current MonthBucket) bool) (MonthBucket, bool) {
	var best MonthBucket
	found := false
	for _, b := range buckets {
		if b.GCI == 0 {
			continue
		}
		if !found || better(b, best) {
			best = b
			found = true
		}
	}
	return best, found
}

// GoalPace projects full-year GCI from the year-to-date total and the
// elapsed fraction of the year. A zero fraction returns the current GCI
// unchanged rather than dividing by zero.
func GoalPace(currentGCI, yearFraction float64) float64 {
	if yearFraction <= 0 {
		return currentGCI
	}
	return currentGCI / yearFraction
}
