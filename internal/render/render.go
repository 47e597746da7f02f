// Package render draws worklists and distribution charts for the terminal.
// It consumes the enriched records and summary as data; nothing here
// recomputes a metric. Tier-to-color mapping lives here, not in the core.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"shelfline/internal/domain"
)

const barWidth = 40

func tierColors(tier domain.RiskTier) text.Colors {
	switch tier {
	case domain.TierHigh:
		return text.Colors{text.FgRed}
	case domain.TierMedium:
		return text.Colors{text.FgYellow}
	case domain.TierLow:
		return text.Colors{text.FgGreen}
	default:
		return text.Colors{text.Faint}
	}
}

// Worklist renders one ordered worklist as a table, rows colored by tier.
func Worklist(w io.Writer, title string, records []domain.EnrichedRecord) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Name", "Quant", "MDD", "Fab", "Val", "Days", "Consume", "Waste", "Age %", "Age End %", "Tier"})
	for _, r := range records {
		tw.AppendRow(table.Row{
			r.Name,
			num(r.BatchQuantity),
			num(r.MeanDailyDepletion),
			date(r.ManufactureDate),
			date(r.ExpiryDate),
			intPtr(r.DaysToExpiry),
			floatPtr(r.ProjectedConsumption),
			num(r.Waste),
			floatPtr(r.AgeNowPct),
			floatPtr(r.AgeAtConsumptionEndPct),
			string(r.RiskTier),
		})
	}
	tw.SetRowPainter(func(row table.Row) text.Colors {
		if len(row) == 0 {
			return nil
		}
		if tier, ok := row[len(row)-1].(string); ok {
			return tierColors(domain.RiskTier(tier))
		}
		return nil
	})
	tw.Render()
}

// TierTables renders the three risk partitions (plus UNKNOWN when present)
// as separate tables, most urgent first, each ordered by days to expiry.
func TierTables(w io.Writer, parts map[domain.RiskTier][]domain.EnrichedRecord) {
	for _, tier := range []domain.RiskTier{domain.TierHigh, domain.TierMedium, domain.TierLow, domain.TierUnknown} {
		records := parts[tier]
		if len(records) == 0 {
			continue
		}
		Worklist(w, fmt.Sprintf("%s risk (%d)", tier, len(records)), records)
		fmt.Fprintln(w)
	}
}

// TierBars renders the records-per-tier bar chart.
func TierBars(w io.Writer, counts []domain.TierCount) {
	max := 0
	for _, c := range counts {
		if c.Count > max {
			max = c.Count
		}
	}
	if max == 0 {
		return
	}
	fmt.Fprintln(w, "Records per risk tier")
	for _, c := range counts {
		bar := strings.Repeat("#", c.Count*barWidth/max)
		label := tierColors(c.Tier).Sprint(fmt.Sprintf("%-8s", c.Tier))
		fmt.Fprintf(w, "  %s %s %d\n", label, bar, c.Count)
	}
}

// Histogram renders one age-percentage distribution.
func Histogram(w io.Writer, title string, bins []domain.HistogramBin) {
	max := 0
	for _, b := range bins {
		if b.Count > max {
			max = b.Count
		}
	}
	if max == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, b := range bins {
		bar := strings.Repeat("#", b.Count*barWidth/max)
		fmt.Fprintf(w, "  %7.1f..%-7.1f %s %d\n", b.Low, b.High, bar, b.Count)
	}
}

// Summary renders the headline totals of a run.
func Summary(w io.Writer, s domain.Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Records", "Total quant", "Projected", "Waste"})
	tw.AppendRow(table.Row{s.TotalRecords, num(s.TotalQuantity), num(s.TotalProjected), num(s.TotalWaste)})
	tw.Render()
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func date(t *time.Time) string {
	if t == nil {
		return "?"
	}
	return t.Format("2006-01-02")
}

func intPtr(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *v)
}

func floatPtr(v *float64) string {
	if v == nil {
		return "?"
	}
	return num(*v)
}
