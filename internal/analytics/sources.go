package analytics

import (
	"sort"

	"pipelineiq-backend/internal/domain"
)

// SourcePerformance aggregates deals per lead source. TotalDeals is the
// created-cohort count for the year; commission sums closed deals only.
type SourcePerformance struct {
	SourceID        int64   `json:"sourceId"`
	Source          string  `json:"source"`
	TotalDeals      int     `json:"totalDeals"`
	ClosedDeals     int     `json:"closedDeals"`
	ConversionRate  float64 `json:"conversionRate"`
	TotalCommission float64 `json:"totalCommission"`
}

// ArchiveReasonCount is one slice of the dead-deal reason breakdown.
type ArchiveReasonCount struct {
	Reason  string  `json:"reason"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

const unknownSource = "Unknown"

// LeadSourcePerformance groups the created cohort of the given year by lead
// source, sorted by total commission descending. Deals without a source
// fall into an "Unknown" group. Conversion is closed/total*100, zero when
// the source has no deals.
func LeadSourcePerformance(deals []domain.Deal, year int) []SourcePerformance {
	bySource := make(map[int64]*SourcePerformance)
	for _, d := range deals {
		if d.CreatedAt.Year() != year {
			continue
		}
		var id int64
		name := unknownSource
		if d.LeadSourceID != nil {
			id = *d.LeadSourceID
			if d.LeadSource != nil {
				name = d.LeadSource.Name
			}
		}
		perf, ok := bySource[id]
		if !ok {
			perf = &SourcePerformance{SourceID: id, Source: name}
			bySource[id] = perf
		}
		perf.TotalDeals++
		if d.Status == domain.StageClosed {
			perf.ClosedDeals++
			perf.TotalCommission += NetCommission(d)
		}
	}

	out := make([]SourcePerformance, 0, len(bySource))
	for _, perf := range bySource {
		if perf.TotalDeals > 0 {
			perf.ConversionRate = float64(perf.ClosedDeals) / float64(perf.TotalDeals) * 100
		}
		out = append(out, *perf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCommission != out[j].TotalCommission {
			return out[i].TotalCommission > out[j].TotalCommission
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// ArchiveReasons breaks down dead deals of the created cohort by reason.
// Percentages are over the dead set, not the whole cohort.
func ArchiveReasons(deals []domain.Deal, year int) []ArchiveReasonCount {
	counts := make(map[string]int)
	total := 0
	for _, d := range deals {
		if d.Status != domain.StageDead || d.CreatedAt.Year() != year {
			continue
		}
		reason := d.ArchiveReason
		if reason == "" {
			reason = "Unspecified"
		}
		counts[reason]++
		total++
	}
	out := make([]ArchiveReasonCount, 0, len(counts))
	for reason, count := range counts {
		entry := ArchiveReasonCount{Reason: reason, Count: count}
		if total > 0 {
			entry.Percent = float64(count) / float64(total) * 100
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
