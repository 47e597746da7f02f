// Package report serializes worklists to flat CSV artifacts. The two
// artifacts of a run are independent: each write succeeds or fails on its
// own and is reported on its own, so one bad sink never suppresses the
// other.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"shelfline/internal/domain"
)

const dateLayout = "2006-01-02"

// Header mirrors the enriched record schema, in order, for downstream
// compatibility. field_issues is appended last so consumers of the base
// schema can ignore it.
var Header = []string{
	"name",
	"batch_quantity",
	"manufacture_date",
	"expiry_date",
	"mean_daily_depletion",
	"days_to_expiry",
	"projected_consumption",
	"waste",
	"age_now_pct",
	"age_at_consumption_end_pct",
	"risk_tier",
	"field_issues",
}

// Writer emits worklist artifacts into a directory.
type Writer struct {
	Dir string
	Log *logrus.Logger
}

// ArtifactResult reports one artifact write. Err is nil on success.
type ArtifactResult struct {
	Name string
	Path string
	Rows int
	Err  error
}

// WriteWorklists writes both worklists concurrently; the artifacts share no
// state, so neither write blocks or invalidates the other. Both results are
// always returned, in (priority, discard) order.
func (w Writer) WriteWorklists(priority, discard []domain.EnrichedRecord, priorityFile, discardFile string) []ArtifactResult {
	results := make([]ArtifactResult, 2)
	var wg sync.WaitGroup
	for i, art := range []struct {
		name    string
		file    string
		records []domain.EnrichedRecord
	}{
		{"priority_worklist", priorityFile, priority},
		{"discard_worklist", discardFile, discard},
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := filepath.Join(w.Dir, art.file)
			err := WriteWorklist(path, art.records)
			results[i] = ArtifactResult{Name: art.name, Path: path, Rows: len(art.records), Err: err}
			if w.Log != nil {
				entry := w.Log.WithFields(logrus.Fields{"artifact": art.name, "path": path, "rows": len(art.records)})
				if err != nil {
					entry.WithError(err).Error("worklist write failed")
				} else {
					entry.Info("worklist written")
				}
			}
		}()
	}
	wg.Wait()
	return results
}

// Err folds artifact results into a single error for callers that only need
// pass/fail; individual failures stay available in the slice.
func Err(results []ArtifactResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}

// WriteWorklist writes one worklist to path, preserving record order.
func WriteWorklist(path string, records []domain.EnrichedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(Header); err != nil {
		f.Close()
		return err
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			f.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func row(r domain.EnrichedRecord) []string {
	return []string{
		r.Name,
		formatFloat(r.BatchQuantity),
		formatDate(r.ManufactureDate),
		formatDate(r.ExpiryDate),
		formatFloat(r.MeanDailyDepletion),
		formatIntPtr(r.DaysToExpiry),
		formatFloatPtr(r.ProjectedConsumption),
		formatFloat(r.Waste),
		formatFloatPtr(r.AgeNowPct),
		formatFloatPtr(r.AgeAtConsumptionEndPct),
		string(r.RiskTier),
		strings.Join(r.FieldIssues, "; "),
	}
}

// ReadWorklist parses a worklist artifact back into enriched records.
// Empty cells come back as nil, matching how they were written.
func ReadWorklist(path string) ([]domain.EnrichedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: missing header", path)
	}
	var out []domain.EnrichedRecord
	for _, cells := range rows[1:] {
		if len(cells) != len(Header) {
			return nil, fmt.Errorf("%s: expected %d columns, got %d", path, len(Header), len(cells))
		}
		rec := domain.EnrichedRecord{
			Record: domain.Record{
				Name:               cells[0],
				BatchQuantity:      parseFloat(cells[1]),
				ManufactureDate:    parseDate(cells[2]),
				ExpiryDate:         parseDate(cells[3]),
				MeanDailyDepletion: parseFloat(cells[4]),
			},
			DaysToExpiry:           parseIntPtr(cells[5]),
			ProjectedConsumption:   parseFloatPtr(cells[6]),
			Waste:                  parseFloat(cells[7]),
			AgeNowPct:              parseFloatPtr(cells[8]),
			AgeAtConsumptionEndPct: parseFloatPtr(cells[9]),
			RiskTier:               domain.RiskTier(cells[10]),
		}
		if cells[11] != "" {
			rec.FieldIssues = strings.Split(cells[11], "; ")
		}
		out = append(out, rec)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseFloatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	v := parseFloat(s)
	return &v
}

func parseIntPtr(s string) *int {
	if s == "" {
		return nil
	}
	v, _ := strconv.Atoi(s)
	return &v
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
