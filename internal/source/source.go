// Package source reads raw inventory rows from an external collaborator:
// a delimiter-separated file or a SQLite table. Sources do no normalization;
// they hand fields over as text and leave parsing to the pipeline.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"shelfline/internal/config"
	"shelfline/internal/domain"
)

// ErrUnavailable marks a source that cannot be opened or read at all. This
// is the only fatal ingestion error; it surfaces before any computation.
var ErrUnavailable = errors.New("input source unavailable")

// Source is a bulk reader of raw rows. A run reads exactly once.
type Source interface {
	Read(ctx context.Context) ([]domain.RawRow, error)
}

// Columns maps the source's header or column names onto row fields.
type Columns struct {
	Name            string
	Quantity        string
	MDD             string
	ManufactureDate string
	ExpiryDate      string
}

// ColumnsFrom extracts the configured column mapping.
func ColumnsFrom(cfg *config.Config) Columns {
	return Columns{
		Name:            cfg.Columns.Name,
		Quantity:        cfg.Columns.Quantity,
		MDD:             cfg.Columns.MDD,
		ManufactureDate: cfg.Columns.ManufactureDate,
		ExpiryDate:      cfg.Columns.ExpiryDate,
	}
}

// Open picks a source for the given path, falling back to the configured
// input path. Paths with a sqlite:// scheme read from a database table;
// everything else is treated as a delimiter-separated file.
func Open(cfg *config.Config, path string) (Source, error) {
	if path == "" {
		path = cfg.Input.Path
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no input path given and none configured", ErrUnavailable)
	}
	if rest, ok := strings.CutPrefix(path, "sqlite://"); ok {
		return &SQLite{Path: rest, Table: cfg.Input.Table, Columns: ColumnsFrom(cfg)}, nil
	}
	return &CSVFile{Path: path, Delimiter: cfg.Delimiter(), Columns: ColumnsFrom(cfg)}, nil
}

// CSVFile reads rows from a delimiter-separated file with a header line.
type CSVFile struct {
	Path      string
	Delimiter rune
	Columns   Columns
}

// Read loads the whole file. A file that cannot be opened or whose header
// cannot be read is ErrUnavailable; individual short rows just produce rows
// with empty fields and flow through the pipeline degraded.
func (s *CSVFile) Read(ctx context.Context) ([]domain.RawRow, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer f.Close()
	return ParseCSV(ctx, f, s.Delimiter, s.Columns)
}

// ParseCSV reads delimiter-separated rows with a header line from any
// reader. It backs both the file source and the upload endpoint.
func ParseCSV(ctx context.Context, reader io.Reader, delimiter rune, cols Columns) ([]domain.RawRow, error) {
	r := csv.NewReader(reader)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrUnavailable, err)
	}
	idx := headerIndex(header, cols)

	var rows []domain.RawRow
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, domain.RawRow{
			Name:               at(fields, idx.name),
			Quantity:           at(fields, idx.quantity),
			MeanDailyDepletion: at(fields, idx.mdd),
			ManufactureDate:    at(fields, idx.manufacture),
			ExpiryDate:         at(fields, idx.expiry),
		})
	}
	return rows, nil
}

type colIndex struct {
	name, quantity, mdd, manufacture, expiry int
}

func headerIndex(header []string, cols Columns) colIndex {
	idx := colIndex{name: -1, quantity: -1, mdd: -1, manufacture: -1, expiry: -1}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		switch {
		case strings.EqualFold(h, cols.Name):
			idx.name = i
		case strings.EqualFold(h, cols.Quantity):
			idx.quantity = i
		case strings.EqualFold(h, cols.MDD):
			idx.mdd = i
		case strings.EqualFold(h, cols.ManufactureDate):
			idx.manufacture = i
		case strings.EqualFold(h, cols.ExpiryDate):
			idx.expiry = i
		}
	}
	return idx
}

func at(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}
