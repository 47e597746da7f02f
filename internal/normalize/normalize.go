// Package normalize turns locale-formatted numeric and date text into
// canonical values. Parsing never fails a run: a field that defeats every
// strategy comes back untouched and the caller records it as a data quality
// issue.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Policy names the canonical numeric normalization rule. The feed this tool
// grew up on uses period and comma as grouping characters, so the default
// strips both before parsing. Feeds that use a decimal comma can switch to
// PolicyCommaDecimal, which strips periods as grouping and converts the
// comma to a decimal point.
type Policy string

const (
	PolicyStripGrouping Policy = "strip-grouping"
	PolicyCommaDecimal  Policy = "comma-decimal"
)

// Valid reports whether p names a known policy.
func (p Policy) Valid() bool {
	return p == PolicyStripGrouping || p == PolicyCommaDecimal
}

// DateOrder names the token order of slash-separated dates in the feed.
type DateOrder string

const (
	OrderDayFirst   DateOrder = "dmy"
	OrderMonthFirst DateOrder = "mdy"
	OrderYearFirst  DateOrder = "ymd"
)

// Valid reports whether o names a known date order.
func (o DateOrder) Valid() bool {
	return o == OrderDayFirst || o == OrderMonthFirst || o == OrderYearFirst
}

var numericShape = regexp.MustCompile(`^-?[0-9.,]+$`)

// Numeric parses a locale-formatted numeric field. Quoting characters are
// dropped, grouping punctuation is removed per policy, then an integer parse
// is attempted before a float parse. The second return is false when every
// strategy fails; the caller keeps the original string.
func Numeric(raw string, policy Policy) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "'", "")
	if s == "" {
		return 0, false
	}
	if numericShape.MatchString(s) {
		switch policy {
		case PolicyCommaDecimal:
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		default:
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(v), true
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	return 0, false
}

// Date parses a slash- or hyphen-separated date with a fixed token order.
// Separators are normalized to hyphens first, mirroring the pre-treatment
// the raw feed gets. ISO dates pass through regardless of order. Unparseable
// input yields false, never an error.
func Date(raw string, order DateOrder) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.ReplaceAll(s, "/", "-")
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i] // drop any time-of-day suffix
	}
	layouts := layoutsFor(order)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func layoutsFor(order DateOrder) []string {
	switch order {
	case OrderMonthFirst:
		return []string{"01-02-2006", "1-2-2006", "01-02-06", "2006-01-02"}
	case OrderYearFirst:
		return []string{"2006-01-02", "2006-1-2"}
	default:
		return []string{"02-01-2006", "2-1-2006", "02-01-06", "2006-01-02"}
	}
}

// CleanField rewrites one raw field to its canonical text: numerics are
// reformatted without grouping punctuation, date-looking fields get hyphen
// separators, anything else passes through. This is the per-field unit of
// the standalone pre-treatment pass.
func CleanField(raw string, policy Policy) string {
	if v, ok := Numeric(raw, policy); ok {
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if strings.Contains(raw, "/") {
		return strings.ReplaceAll(raw, "/", "-")
	}
	return raw
}

// CleanRow canonicalizes every field and drops the empty ones.
func CleanRow(fields []string, policy Policy) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		cleaned := CleanField(f, policy)
		if strings.TrimSpace(cleaned) == "" {
			continue
		}
		out = append(out, cleaned)
	}
	return out
}
