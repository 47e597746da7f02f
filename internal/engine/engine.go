package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shelfline/internal/config"
	"shelfline/internal/domain"
	"shelfline/internal/normalize"
)

// Engine runs the derivation pipeline. Now is injected so every metric is a
// pure function of the input snapshot and a fixed evaluation instant.
type Engine struct {
	Config *config.Config
	Log    *logrus.Logger
	Now    func() time.Time
	// Progress, when set, is called once per record as it is derived.
	Progress func(n int)
}

func New(cfg *config.Config, log *logrus.Logger) Engine {
	if log == nil {
		log = logrus.New()
	}
	return Engine{
		Config: cfg,
		Log:    log,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Result is everything one pipeline run derives. Records keeps input order;
// Priority and Discard are the two worklists over the same enriched set.
type Result struct {
	RunID    string                  `json:"run_id"`
	AsOf     time.Time               `json:"as_of" format:"date-time"`
	Records  []domain.EnrichedRecord `json:"records"`
	Priority []domain.EnrichedRecord `json:"priority"`
	Discard  []domain.EnrichedRecord `json:"discard"`
	Summary  domain.Summary          `json:"summary"`
}

// Run normalizes the raw rows, derives every metric against one fixed
// instant, and builds both worklists plus the chart summary. Per-field
// failures degrade the affected record; only an empty input aborts nothing —
// the result is simply empty.
func (e Engine) Run(ctx context.Context, rows []domain.RawRow) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	asOf := e.now()
	res := Result{
		RunID:   uuid.New().String(),
		AsOf:    asOf,
		Records: make([]domain.EnrichedRecord, 0, len(rows)),
	}
	for _, row := range rows {
		rec := e.NormalizeRow(row)
		res.Records = append(res.Records, Enrich(rec, asOf))
		if e.Progress != nil {
			e.Progress(1)
		}
	}
	res.Priority = BuildPriority(res.Records)
	res.Discard = BuildDiscard(res.Records)
	res.Summary = Summarize(res.Records, e.Config.Charts.BinWidth)
	e.Log.WithFields(logrus.Fields{
		"run_id":  res.RunID,
		"records": len(res.Records),
		"discard": len(res.Discard),
		"as_of":   asOf.Format(time.RFC3339),
	}).Info("pipeline run complete")
	return res, nil
}

// NormalizeRow converts one raw row into a typed Record using the configured
// normalization policy. Numeric fields that fail every parse keep value zero
// and leave their raw text in FieldIssues; absent or unparseable dates stay
// nil.
func (e Engine) NormalizeRow(row domain.RawRow) domain.Record {
	policy := e.Config.Normalize.Policy
	order := e.Config.Normalize.DateOrder
	rec := domain.Record{Name: strings.TrimSpace(row.Name)}
	if v, ok := normalize.Numeric(row.Quantity, policy); ok {
		rec.BatchQuantity = v
	} else {
		rec.FieldIssues = append(rec.FieldIssues, fmt.Sprintf("quant: %q is not numeric", row.Quantity))
	}
	if v, ok := normalize.Numeric(row.MeanDailyDepletion, policy); ok {
		rec.MeanDailyDepletion = v
	} else {
		rec.FieldIssues = append(rec.FieldIssues, fmt.Sprintf("mdd: %q is not numeric", row.MeanDailyDepletion))
	}
	if t, ok := normalize.Date(row.ManufactureDate, order); ok {
		rec.ManufactureDate = &t
	} else if strings.TrimSpace(row.ManufactureDate) != "" {
		rec.FieldIssues = append(rec.FieldIssues, fmt.Sprintf("data_fab: %q is not a date", row.ManufactureDate))
	}
	if t, ok := normalize.Date(row.ExpiryDate, order); ok {
		rec.ExpiryDate = &t
	} else if strings.TrimSpace(row.ExpiryDate) != "" {
		rec.FieldIssues = append(rec.FieldIssues, fmt.Sprintf("data_val: %q is not a date", row.ExpiryDate))
	}
	return rec
}
