package engine

import (
	"context"
	"testing"
	"time"

	"shelfline/internal/config"
	"shelfline/internal/domain"
)

func newTestEngine() Engine {
	e := New(config.Default(), nil)
	e.Now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestRunDerivesEverySurface(t *testing.T) {
	e := newTestEngine()
	rows := []domain.RawRow{
		{Name: "Yogurt", Quantity: "100", MeanDailyDepletion: "4", ManufactureDate: "01/02/2026", ExpiryDate: "16/03/2026"},
		{Name: "Flour", Quantity: `"1.200"`, MeanDailyDepletion: "10", ManufactureDate: "01/01/2026", ExpiryDate: "01/01/2027"},
		{Name: "Mystery", Quantity: "n/a", MeanDailyDepletion: "", ManufactureDate: "", ExpiryDate: "soon"},
	}
	res, err := e.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.RunID == "" {
		t.Fatal("missing run id")
	}
	if len(res.Records) != 3 {
		t.Fatalf("records: %d", len(res.Records))
	}

	yogurt := res.Records[0]
	if *yogurt.DaysToExpiry != 15 || yogurt.RiskTier != domain.TierHigh {
		t.Fatalf("yogurt: %+v", yogurt)
	}
	if *yogurt.ProjectedConsumption != 60 || yogurt.Waste != 40 {
		t.Fatalf("yogurt projection: %+v", yogurt)
	}

	flour := res.Records[1]
	if flour.BatchQuantity != 1200 {
		t.Fatalf("grouping strip: %+v", flour)
	}
	if flour.RiskTier != domain.TierLow {
		t.Fatalf("flour tier: %v", flour.RiskTier)
	}

	mystery := res.Records[2]
	if mystery.RiskTier != domain.TierUnknown || mystery.DaysToExpiry != nil {
		t.Fatalf("mystery: %+v", mystery)
	}
	if mystery.Waste != 0 {
		t.Fatalf("mystery waste with zero quantity: %v", mystery.Waste)
	}
	if len(mystery.FieldIssues) != 3 {
		t.Fatalf("mystery issues: %v", mystery.FieldIssues)
	}

	// unknown projections always land on the discard worklist
	found := false
	for _, r := range res.Discard {
		if r.Name == "Mystery" {
			found = true
		}
	}
	if !found {
		t.Fatalf("discard should include unknown projection: %v", names(res.Discard))
	}
	if res.Summary.TotalRecords != 3 {
		t.Fatalf("summary: %+v", res.Summary)
	}
}

func TestRunEmptyInput(t *testing.T) {
	e := newTestEngine()
	res, err := e.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Records) != 0 || len(res.Priority) != 0 || len(res.Discard) != 0 {
		t.Fatalf("empty input should yield empty result: %+v", res)
	}
	if res.Summary.TotalRecords != 0 {
		t.Fatalf("summary: %+v", res.Summary)
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	e := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx, nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestRunReportsProgress(t *testing.T) {
	e := newTestEngine()
	var n int
	e.Progress = func(delta int) { n += delta }
	rows := []domain.RawRow{{Name: "a"}, {Name: "b"}}
	if _, err := e.Run(context.Background(), rows); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 2 {
		t.Fatalf("progress: %d", n)
	}
}

func TestNormalizeRowKeepsRawTextOnFailure(t *testing.T) {
	e := newTestEngine()
	rec := e.NormalizeRow(domain.RawRow{
		Name:            "  Milk  ",
		Quantity:        "a lot",
		ExpiryDate:      "someday",
		ManufactureDate: "",
	})
	if rec.Name != "Milk" {
		t.Fatalf("name: %q", rec.Name)
	}
	if rec.BatchQuantity != 0 || rec.ExpiryDate != nil {
		t.Fatalf("failed fields must stay zero/nil: %+v", rec)
	}
	// empty manufacture date is absence, not an issue
	if len(rec.FieldIssues) != 3 {
		t.Fatalf("issues: %v", rec.FieldIssues)
	}
	for _, issue := range rec.FieldIssues {
		if issue == "" {
			t.Fatalf("blank issue: %v", rec.FieldIssues)
		}
	}
}
