package engine

import (
	"math"
	"sort"

	"shelfline/internal/domain"
)

// BuildPriority returns the consume-first ordering: tier severity ascending,
// then age descending within a tier. The sort is stable so repeated runs on
// unchanged input keep the original relative order of ties. Records with
// unknown age sort after known ones in their tier. The input slice is not
// mutated.
func BuildPriority(records []domain.EnrichedRecord) []domain.EnrichedRecord {
	out := make([]domain.EnrichedRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].RiskTier.Severity(), out[j].RiskTier.Severity()
		if si != sj {
			return si < sj
		}
		ai, aj := out[i].AgeNowPct, out[j].AgeNowPct
		switch {
		case ai == nil && aj == nil:
			return false
		case ai == nil:
			return false
		case aj == nil:
			return true
		default:
			return *ai > *aj
		}
	})
	return out
}

// BuildDiscard returns the batches likely to be thrown away: quantity above
// the known projected consumption, plus every record whose projection is
// unknown (treated as certain loss). Ordered by tier severity then days to
// expiry for display consistency, unknown days last.
func BuildDiscard(records []domain.EnrichedRecord) []domain.EnrichedRecord {
	var out []domain.EnrichedRecord
	for _, r := range records {
		if r.ProjectedConsumption == nil || r.BatchQuantity > *r.ProjectedConsumption {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].RiskTier.Severity(), out[j].RiskTier.Severity()
		if si != sj {
			return si < sj
		}
		di, dj := out[i].DaysToExpiry, out[j].DaysToExpiry
		switch {
		case di == nil && dj == nil:
			return false
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
	return out
}

// Partition splits records by tier, each slice sorted by days to expiry
// ascending, matching the three dashboard tables.
func Partition(records []domain.EnrichedRecord) map[domain.RiskTier][]domain.EnrichedRecord {
	parts := map[domain.RiskTier][]domain.EnrichedRecord{}
	for _, r := range records {
		parts[r.RiskTier] = append(parts[r.RiskTier], r)
	}
	for tier := range parts {
		p := parts[tier]
		sort.SliceStable(p, func(i, j int) bool {
			di, dj := p[i].DaysToExpiry, p[j].DaysToExpiry
			switch {
			case di == nil && dj == nil:
				return false
			case di == nil:
				return false
			case dj == nil:
				return true
			default:
				return *di < *dj
			}
		})
	}
	return parts
}

// Summarize aggregates one enriched set for the chart surfaces.
func Summarize(records []domain.EnrichedRecord, binWidth float64) domain.Summary {
	s := domain.Summary{TotalRecords: len(records)}
	tierCounts := map[domain.RiskTier]int{}
	dayCounts := map[domain.DaysCount]int{}
	var agesNow, agesEnd []float64
	for _, r := range records {
		s.TotalQuantity += r.BatchQuantity
		s.TotalWaste += r.Waste
		if r.ProjectedConsumption != nil {
			s.TotalProjected += *r.ProjectedConsumption
		}
		tierCounts[r.RiskTier]++
		if r.DaysToExpiry != nil {
			dayCounts[domain.DaysCount{Days: *r.DaysToExpiry, Tier: r.RiskTier}]++
		}
		if r.AgeNowPct != nil {
			agesNow = append(agesNow, *r.AgeNowPct)
		}
		if r.AgeAtConsumptionEndPct != nil {
			agesEnd = append(agesEnd, *r.AgeAtConsumptionEndPct)
		}
	}
	for _, tier := range []domain.RiskTier{domain.TierHigh, domain.TierMedium, domain.TierLow, domain.TierUnknown} {
		s.TierCounts = append(s.TierCounts, domain.TierCount{Tier: tier, Count: tierCounts[tier]})
	}
	for key, n := range dayCounts {
		key.Count = n
		s.ExpiryDistribution = append(s.ExpiryDistribution, key)
	}
	sort.Slice(s.ExpiryDistribution, func(i, j int) bool {
		di, dj := s.ExpiryDistribution[i], s.ExpiryDistribution[j]
		if di.Days != dj.Days {
			return di.Days < dj.Days
		}
		return di.Tier.Severity() < dj.Tier.Severity()
	})
	s.AgeNowHistogram = histogram(agesNow, binWidth)
	s.AgeEndHistogram = histogram(agesEnd, binWidth)
	return s
}

// histogram bins values into fixed-width buckets spanning the data range.
// Values land in [low, high) except the top bin, which is closed so the
// maximum is not orphaned.
func histogram(values []float64, binWidth float64) []domain.HistogramBin {
	if len(values) == 0 || binWidth <= 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	start := binWidth * floorDiv(lo, binWidth)
	n := int(floorDiv(hi, binWidth)) - int(floorDiv(lo, binWidth)) + 1
	bins := make([]domain.HistogramBin, n)
	for i := range bins {
		bins[i].Low = start + float64(i)*binWidth
		bins[i].High = bins[i].Low + binWidth
	}
	for _, v := range values {
		idx := int(floorDiv(v, binWidth)) - int(floorDiv(lo, binWidth))
		if idx >= n {
			idx = n - 1
		}
		bins[idx].Count++
	}
	return bins
}

func floorDiv(v, w float64) float64 {
	return math.Floor(v / w)
}
