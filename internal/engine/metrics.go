package engine

import (
	"math"
	"time"

	"shelfline/internal/domain"
)

// Tier thresholds in days to expiry. Boundaries are inclusive on the more
// urgent tier: exactly 30 days is HIGH, exactly 90 is MEDIUM.
const (
	HighMaxDays   = 30
	MediumMaxDays = 90
)

// daysBetween counts whole days from one instant to another, flooring toward
// negative infinity so a batch expiring earlier today than now's time of day
// lands on day 0 or below, consistently.
func daysBetween(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// DaysToExpiry returns whole days until expiry, negative for already-expired
// batches, nil when the expiry date is unknown.
func DaysToExpiry(expiry *time.Time, now time.Time) *int {
	if expiry == nil {
		return nil
	}
	d := daysBetween(now, *expiry)
	return &d
}

// ProjectedConsumption estimates units consumed before expiry, clamped to
// [0, quantity]. Unknown days to expiry propagates as nil.
func ProjectedConsumption(daysToExpiry *int, mdd, quantity float64) *float64 {
	if daysToExpiry == nil {
		return nil
	}
	v := float64(*daysToExpiry) * mdd
	v = math.Max(0, math.Min(v, quantity))
	return &v
}

// Waste is the quantity expected to expire unconsumed. When projected
// consumption is unknown the whole batch counts as loss. Never negative.
func Waste(quantity float64, projected *float64) float64 {
	if projected == nil {
		return math.Max(0, quantity)
	}
	return math.Max(0, quantity-*projected)
}

// AgeNowPct is the elapsed share of the shelf life, in percent. A zero-length
// shelf life yields 0, not a division error. Missing either date yields nil.
func AgeNowPct(manufacture, expiry *time.Time, now time.Time) *float64 {
	if manufacture == nil || expiry == nil {
		return nil
	}
	span := daysBetween(*manufacture, *expiry)
	pct := 0.0
	if span != 0 {
		pct = float64(daysBetween(*manufacture, now)) / float64(span) * 100
	}
	return &pct
}

// AgeAtConsumptionEndPct projects AgeNowPct forward by the days needed to
// consume the projected quantity (projected/MDD, capped at days to expiry).
// An MDD of zero or less contributes no consumption days.
func AgeAtConsumptionEndPct(manufacture, expiry *time.Time, now time.Time, daysToExpiry *int, projected *float64, mdd float64) *float64 {
	if manufacture == nil || expiry == nil || daysToExpiry == nil || projected == nil {
		return nil
	}
	span := daysBetween(*manufacture, *expiry)
	pct := 0.0
	if span != 0 {
		consumeDays := 0.0
		if mdd > 0 {
			consumeDays = math.Min(*projected/mdd, float64(*daysToExpiry))
		}
		elapsed := float64(daysBetween(*manufacture, now))
		pct = (elapsed + consumeDays) / float64(span) * 100
	}
	return &pct
}

// Classify maps days to expiry to a risk tier. The partition is total over
// all real day counts; unknown maps to an explicit UNKNOWN tier.
func Classify(daysToExpiry *int) domain.RiskTier {
	switch {
	case daysToExpiry == nil:
		return domain.TierUnknown
	case *daysToExpiry <= HighMaxDays:
		return domain.TierHigh
	case *daysToExpiry <= MediumMaxDays:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

// Enrich derives every metric for one record against a fixed evaluation
// instant. It is a pure function of its inputs; repeated calls with the same
// record and now yield identical results.
func Enrich(r domain.Record, now time.Time) domain.EnrichedRecord {
	dte := DaysToExpiry(r.ExpiryDate, now)
	projected := ProjectedConsumption(dte, r.MeanDailyDepletion, r.BatchQuantity)
	return domain.EnrichedRecord{
		Record:                 r,
		DaysToExpiry:           dte,
		ProjectedConsumption:   projected,
		Waste:                  Waste(r.BatchQuantity, projected),
		AgeNowPct:              AgeNowPct(r.ManufactureDate, r.ExpiryDate, now),
		AgeAtConsumptionEndPct: AgeAtConsumptionEndPct(r.ManufactureDate, r.ExpiryDate, now, dte, projected, r.MeanDailyDepletion),
		RiskTier:               Classify(dte),
	}
}
