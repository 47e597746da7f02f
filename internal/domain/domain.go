package domain

import "time"

// RiskTier is the coarse urgency classification derived from days to expiry.
type RiskTier string

const (
	TierHigh    RiskTier = "HIGH"
	TierMedium  RiskTier = "MEDIUM"
	TierLow     RiskTier = "LOW"
	TierUnknown RiskTier = "UNKNOWN"
)

// Severity orders tiers from most to least urgent. UNKNOWN sorts last so
// degraded records stay visible at the end of a worklist instead of being
// interleaved with classified ones.
func (t RiskTier) Severity() int {
	switch t {
	case TierHigh:
		return 0
	case TierMedium:
		return 1
	case TierLow:
		return 2
	default:
		return 3
	}
}

// RawRow is one record as read from an input source, fields still in their
// raw textual form.
type RawRow struct {
	Name               string `json:"name"`
	Quantity           string `json:"quant"`
	MeanDailyDepletion string `json:"mdd"`
	ManufactureDate    string `json:"data_fab"`
	ExpiryDate         string `json:"data_val"`
}

// Record is one normalized inventory batch. Missing or unparseable dates are
// nil, never a sentinel value. FieldIssues keeps the raw text of any numeric
// field that failed to parse so data quality problems stay visible downstream.
type Record struct {
	Name               string     `json:"name"`
	BatchQuantity      float64    `json:"batch_quantity"`
	ManufactureDate    *time.Time `json:"manufacture_date,omitempty" format:"date-time"`
	ExpiryDate         *time.Time `json:"expiry_date,omitempty" format:"date-time"`
	MeanDailyDepletion float64    `json:"mean_daily_depletion"`
	FieldIssues        []string   `json:"field_issues,omitempty"`
}

// EnrichedRecord is a Record plus the derived metrics for one evaluation
// timestamp. Nil pointers mark metrics that could not be computed because a
// date was missing; such records still carry a total-loss Waste and an
// UNKNOWN tier.
type EnrichedRecord struct {
	Record
	DaysToExpiry           *int     `json:"days_to_expiry,omitempty"`
	ProjectedConsumption   *float64 `json:"projected_consumption,omitempty"`
	Waste                  float64  `json:"waste"`
	AgeNowPct              *float64 `json:"age_now_pct,omitempty"`
	AgeAtConsumptionEndPct *float64 `json:"age_at_consumption_end_pct,omitempty"`
	RiskTier               RiskTier `json:"risk_tier" enum:"HIGH,MEDIUM,LOW,UNKNOWN"`
}

// TierCount is one bar of the records-per-tier chart.
type TierCount struct {
	Tier  RiskTier `json:"tier" enum:"HIGH,MEDIUM,LOW,UNKNOWN"`
	Count int      `json:"count"`
}

// HistogramBin is one bin of an age-percentage distribution. Low is
// inclusive, High exclusive except for the last bin.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// DaysCount is one point of the days-to-expiry distribution, keyed by tier
// so the display layer can color it.
type DaysCount struct {
	Days  int      `json:"days"`
	Tier  RiskTier `json:"tier" enum:"HIGH,MEDIUM,LOW,UNKNOWN"`
	Count int      `json:"count"`
}

// Summary aggregates one run for the chart surfaces. Everything here is
// derived from the enriched set; the display layer never recomputes.
type Summary struct {
	TotalRecords       int            `json:"total_records"`
	TotalQuantity      float64        `json:"total_quantity"`
	TotalProjected     float64        `json:"total_projected"`
	TotalWaste         float64        `json:"total_waste"`
	TierCounts         []TierCount    `json:"tier_counts"`
	AgeNowHistogram    []HistogramBin `json:"age_now_histogram"`
	AgeEndHistogram    []HistogramBin `json:"age_end_histogram"`
	ExpiryDistribution []DaysCount    `json:"expiry_distribution"`
}
