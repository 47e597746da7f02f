package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"shelfline/internal/domain"
)

// SQLite reads rows from a table in a local SQLite database, opened
// read-only. Useful when the inventory feed lands in a database instead of
// a flat file; derived output still only ever goes to flat files.
type SQLite struct {
	Path    string
	Table   string
	Columns Columns
}

// Read selects the five configured columns from the table. NULL cells come
// back as empty strings and degrade through the pipeline like any other
// missing field.
func (s *SQLite) Read(ctx context.Context) ([]domain.RawRow, error) {
	if s.Table == "" {
		return nil, fmt.Errorf("%w: no table configured for sqlite input", ErrUnavailable)
	}
	if _, err := os.Stat(s.Path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", s.Path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer db.Close()

	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s FROM %s`,
		quoteIdent(s.Columns.Name),
		quoteIdent(s.Columns.Quantity),
		quoteIdent(s.Columns.MDD),
		quoteIdent(s.Columns.ManufactureDate),
		quoteIdent(s.Columns.ExpiryDate),
		quoteIdent(s.Table))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []domain.RawRow
	for rows.Next() {
		var name, quant, mdd, fab, val sql.NullString
		if err := rows.Scan(&name, &quant, &mdd, &fab, &val); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, domain.RawRow{
			Name:               name.String,
			Quantity:           quant.String,
			MeanDailyDepletion: mdd.String,
			ManufactureDate:    fab.String,
			ExpiryDate:         val.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return out, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
