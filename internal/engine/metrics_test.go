package engine

import (
	"testing"
	"time"

	"shelfline/internal/domain"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDaysToExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := DaysToExpiry(date(2026, 1, 31), now); got == nil || *got != 30 {
		t.Fatalf("30 days out: got %v", got)
	}
	if got := DaysToExpiry(date(2025, 12, 30), now); got == nil || *got != -2 {
		t.Fatalf("expired: got %v", got)
	}
	if got := DaysToExpiry(nil, now); got != nil {
		t.Fatalf("nil expiry: got %v", got)
	}
}

func TestDaysToExpiryFloorsPartialDays(t *testing.T) {
	// Expiry earlier in the day than now lands on the previous whole day.
	now := time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)
	if got := DaysToExpiry(&expiry, now); got == nil || *got != 0 {
		t.Fatalf("12h out: got %v, want 0", got)
	}
	past := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	if got := DaysToExpiry(&past, now); got == nil || *got != -1 {
		t.Fatalf("12h ago: got %v, want -1", got)
	}
}

func TestProjectedConsumptionClamps(t *testing.T) {
	days := func(d int) *int { return &d }
	if got := ProjectedConsumption(days(10), 5, 100); got == nil || *got != 50 {
		t.Fatalf("10d*5: got %v, want 50", got)
	}
	if got := ProjectedConsumption(days(100), 5, 100); got == nil || *got != 100 {
		t.Fatalf("upper clamp: got %v, want 100", got)
	}
	if got := ProjectedConsumption(days(-3), 5, 100); got == nil || *got != 0 {
		t.Fatalf("expired clamps to 0: got %v", got)
	}
	if got := ProjectedConsumption(nil, 5, 100); got != nil {
		t.Fatalf("unknown days: got %v, want nil", got)
	}
}

func TestWaste(t *testing.T) {
	p := func(v float64) *float64 { return &v }
	if got := Waste(100, p(40)); got != 60 {
		t.Fatalf("partial: got %v", got)
	}
	if got := Waste(100, p(100)); got != 0 {
		t.Fatalf("all consumed: got %v", got)
	}
	if got := Waste(100, nil); got != 100 {
		t.Fatalf("unknown projection counts whole batch: got %v", got)
	}
	if got := Waste(-5, nil); got != 0 {
		t.Fatalf("never negative: got %v", got)
	}
}

func TestAgeNowPct(t *testing.T) {
	now := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)
	got := AgeNowPct(date(2026, 1, 1), date(2026, 1, 21), now)
	if got == nil || *got != 50 {
		t.Fatalf("midlife: got %v, want 50", got)
	}
	if got := AgeNowPct(nil, date(2026, 1, 21), now); got != nil {
		t.Fatalf("missing manufacture: got %v", got)
	}
}

func TestAgeNowPctZeroSpan(t *testing.T) {
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	same := date(2026, 1, 1)
	got := AgeNowPct(same, same, now)
	if got == nil || *got != 0 {
		t.Fatalf("zero-length shelf life: got %v, want 0", got)
	}
}

func TestAgeAtConsumptionEndPct(t *testing.T) {
	now := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)
	mfg, exp := date(2026, 1, 1), date(2026, 1, 21)
	days := 10
	projected := 25.0 // 5 days of consumption at mdd 5
	got := AgeAtConsumptionEndPct(mfg, exp, now, &days, &projected, 5)
	if got == nil || *got != 75 {
		t.Fatalf("got %v, want 75", got)
	}
	// Zero MDD contributes no consumption days.
	zero := AgeAtConsumptionEndPct(mfg, exp, now, &days, &projected, 0)
	if zero == nil || *zero != 50 {
		t.Fatalf("zero mdd: got %v, want 50", zero)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	days := func(d int) *int { return &d }
	cases := []struct {
		in   *int
		want domain.RiskTier
	}{
		{days(-10), domain.TierHigh},
		{days(0), domain.TierHigh},
		{days(30), domain.TierHigh},
		{days(31), domain.TierMedium},
		{days(90), domain.TierMedium},
		{days(91), domain.TierLow},
		{nil, domain.TierUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.in); got != c.want {
			t.Errorf("Classify(%v) = %v; want %v", c.in, got, c.want)
		}
	}
}

func TestEnrichIsDeterministic(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := domain.Record{
		Name:               "Yogurt",
		BatchQuantity:      100,
		MeanDailyDepletion: 4,
		ManufactureDate:    date(2025, 12, 1),
		ExpiryDate:         date(2026, 1, 16),
	}
	a := Enrich(rec, now)
	b := Enrich(rec, now)
	if *a.DaysToExpiry != *b.DaysToExpiry || a.Waste != b.Waste || a.RiskTier != b.RiskTier {
		t.Fatalf("repeated Enrich differs: %+v vs %+v", a, b)
	}
	if *a.DaysToExpiry != 15 || a.RiskTier != domain.TierHigh {
		t.Fatalf("unexpected derivation: %+v", a)
	}
	if *a.ProjectedConsumption != 60 || a.Waste != 40 {
		t.Fatalf("projection: got %v waste %v", *a.ProjectedConsumption, a.Waste)
	}
}
