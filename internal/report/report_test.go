package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"shelfline/internal/domain"
)

func sampleRecords() []domain.EnrichedRecord {
	exp := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	mfg := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	days := 15
	projected := 60.0
	age := 65.5
	return []domain.EnrichedRecord{
		{
			Record: domain.Record{
				Name:               "Yogurt",
				BatchQuantity:      100,
				ManufactureDate:    &mfg,
				ExpiryDate:         &exp,
				MeanDailyDepletion: 4,
			},
			DaysToExpiry:         &days,
			ProjectedConsumption: &projected,
			Waste:                40,
			AgeNowPct:            &age,
			RiskTier:             domain.TierHigh,
		},
		{
			Record: domain.Record{
				Name:        "Mystery",
				FieldIssues: []string{`quant: "n/a" is not numeric`, `data_val: "soon" is not a date`},
			},
			Waste:    0,
			RiskTier: domain.TierUnknown,
		},
	}
}

func TestWorklistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worklist.csv")
	records := sampleRecords()
	if err := WriteWorklist(path, records); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadWorklist(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows: %d", len(got))
	}
	if got[0].Name != "Yogurt" || *got[0].DaysToExpiry != 15 || got[0].Waste != 40 {
		t.Fatalf("yogurt: %+v", got[0])
	}
	if !got[0].ExpiryDate.Equal(*records[0].ExpiryDate) {
		t.Fatalf("expiry: %v", got[0].ExpiryDate)
	}
	if got[1].DaysToExpiry != nil || got[1].ExpiryDate != nil || got[1].AgeNowPct != nil {
		t.Fatalf("empty cells must come back nil: %+v", got[1])
	}
	if got[1].RiskTier != domain.TierUnknown {
		t.Fatalf("tier: %v", got[1].RiskTier)
	}
	if len(got[1].FieldIssues) != 2 {
		t.Fatalf("issues: %v", got[1].FieldIssues)
	}
}

func TestWriteWorklistsIndependentFailure(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: dir}
	records := sampleRecords()

	// Point the discard artifact at a path that cannot be created.
	results := w.WriteWorklists(records, records, "priority.csv", filepath.Join("missing", "discard.csv"))
	if len(results) != 2 {
		t.Fatalf("results: %d", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("priority should succeed: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Fatal("discard should fail")
	}
	if _, err := os.Stat(filepath.Join(dir, "priority.csv")); err != nil {
		t.Fatalf("priority artifact missing: %v", err)
	}
	if err := Err(results); err == nil {
		t.Fatal("folded error should report the failure")
	}
}

func TestWriteWorklistsBothSucceed(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: dir}
	records := sampleRecords()
	results := w.WriteWorklists(records, records[:1], "priority.csv", "discard.csv")
	if err := Err(results); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if results[0].Rows != 2 || results[1].Rows != 1 {
		t.Fatalf("row counts: %+v", results)
	}
	got, err := ReadWorklist(results[1].Path)
	if err != nil || len(got) != 1 {
		t.Fatalf("discard artifact: %v %d", err, len(got))
	}
}
