package engine

import (
	"testing"

	"shelfline/internal/domain"
)

func enriched(name string, tier domain.RiskTier, age *float64, days *int, qty float64, projected *float64) domain.EnrichedRecord {
	return domain.EnrichedRecord{
		Record:               domain.Record{Name: name, BatchQuantity: qty},
		RiskTier:             tier,
		AgeNowPct:            age,
		DaysToExpiry:         days,
		ProjectedConsumption: projected,
	}
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestBuildPriorityOrdering(t *testing.T) {
	records := []domain.EnrichedRecord{
		enriched("low-old", domain.TierLow, fptr(90), iptr(120), 10, fptr(10)),
		enriched("high-young", domain.TierHigh, fptr(20), iptr(5), 10, fptr(10)),
		enriched("high-old", domain.TierHigh, fptr(80), iptr(10), 10, fptr(10)),
		enriched("medium", domain.TierMedium, fptr(50), iptr(60), 10, fptr(10)),
		enriched("high-noage", domain.TierHigh, nil, iptr(3), 10, fptr(10)),
	}
	got := BuildPriority(records)
	want := []string{"high-old", "high-young", "high-noage", "medium", "low-old"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: got %s, want %s (%v)", i, got[i].Name, name, names(got))
		}
	}
	// input untouched
	if records[0].Name != "low-old" {
		t.Fatalf("input mutated: %v", names(records))
	}
}

func TestBuildPriorityStableOnTies(t *testing.T) {
	records := []domain.EnrichedRecord{
		enriched("a", domain.TierHigh, fptr(50), iptr(5), 10, fptr(10)),
		enriched("b", domain.TierHigh, fptr(50), iptr(6), 10, fptr(10)),
		enriched("c", domain.TierHigh, fptr(50), iptr(7), 10, fptr(10)),
	}
	first := BuildPriority(records)
	second := BuildPriority(records)
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Fatalf("unstable tie ordering: %v vs %v", names(first), names(second))
		}
	}
	if first[0].Name != "a" || first[1].Name != "b" || first[2].Name != "c" {
		t.Fatalf("ties should keep input order: %v", names(first))
	}
}

func TestBuildDiscardSelection(t *testing.T) {
	records := []domain.EnrichedRecord{
		enriched("keep", domain.TierLow, nil, iptr(100), 10, fptr(10)),     // fully consumed
		enriched("partial", domain.TierHigh, nil, iptr(5), 10, fptr(4)),    // surplus
		enriched("unknown", domain.TierUnknown, nil, nil, 10, nil),         // projection unknown
		enriched("medium", domain.TierMedium, nil, iptr(40), 10, fptr(2)),  // surplus
		enriched("exact", domain.TierMedium, nil, iptr(50), 10, fptr(10)),  // boundary: not discard
	}
	got := BuildDiscard(records)
	want := []string{"partial", "medium", "unknown"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", names(got), want)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: got %s, want %s", i, got[i].Name, name)
		}
	}
}

func TestPartitionSortsByDays(t *testing.T) {
	records := []domain.EnrichedRecord{
		enriched("h2", domain.TierHigh, nil, iptr(20), 1, fptr(1)),
		enriched("h1", domain.TierHigh, nil, iptr(5), 1, fptr(1)),
		enriched("l1", domain.TierLow, nil, iptr(200), 1, fptr(1)),
	}
	parts := Partition(records)
	high := parts[domain.TierHigh]
	if len(high) != 2 || high[0].Name != "h1" || high[1].Name != "h2" {
		t.Fatalf("high partition: %v", names(high))
	}
	if len(parts[domain.TierLow]) != 1 {
		t.Fatalf("low partition: %v", names(parts[domain.TierLow]))
	}
}

func TestSummarizeCountsAndBins(t *testing.T) {
	records := []domain.EnrichedRecord{
		enriched("a", domain.TierHigh, fptr(5), iptr(10), 100, fptr(40)),
		enriched("b", domain.TierHigh, fptr(15), iptr(10), 50, fptr(50)),
		enriched("c", domain.TierUnknown, nil, nil, 20, nil),
	}
	records[0].Waste = 60
	records[2].Waste = 20
	s := Summarize(records, 10)
	if s.TotalRecords != 3 || s.TotalQuantity != 170 || s.TotalWaste != 80 {
		t.Fatalf("totals: %+v", s)
	}
	if s.TierCounts[0].Tier != domain.TierHigh || s.TierCounts[0].Count != 2 {
		t.Fatalf("tier counts: %v", s.TierCounts)
	}
	if s.TierCounts[3].Tier != domain.TierUnknown || s.TierCounts[3].Count != 1 {
		t.Fatalf("unknown count: %v", s.TierCounts)
	}
	if len(s.ExpiryDistribution) != 1 || s.ExpiryDistribution[0].Count != 2 {
		t.Fatalf("expiry distribution: %v", s.ExpiryDistribution)
	}
	if len(s.AgeNowHistogram) != 2 || s.AgeNowHistogram[0].Count != 1 || s.AgeNowHistogram[1].Count != 1 {
		t.Fatalf("histogram: %v", s.AgeNowHistogram)
	}
	if s.AgeNowHistogram[0].Low != 0 || s.AgeNowHistogram[0].High != 10 {
		t.Fatalf("bin edges: %v", s.AgeNowHistogram[0])
	}
}

func TestHistogramTopBinClosed(t *testing.T) {
	bins := histogram([]float64{0, 10, 20}, 10)
	if len(bins) != 3 {
		t.Fatalf("bins: %v", bins)
	}
	if bins[2].Count != 1 {
		t.Fatalf("maximum value must land in the top bin: %v", bins)
	}
}

func names(records []domain.EnrichedRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}
