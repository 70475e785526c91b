package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charflux/charflux/internal/types"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteSource reads charcoal records from a SQLite file database, the
// form in which GCD snapshots are usually distributed.
type SQLiteSource struct {
	db       *sql.DB
	sentinel float64
}

// NewSQLiteSource opens the file and pings it.
func NewSQLiteSource(path string, sentinel float64) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging SQLite database %s: %w", path, err)
	}
	return &SQLiteSource{db: db, sentinel: sentinel}, nil
}

// Sites lists every site ordered by site ID.
func (s *SQLiteSource) Sites(ctx context.Context) ([]types.Site, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT site_id, site_name FROM sites ORDER BY site_id`)
	if err != nil {
		return nil, fmt.Errorf("querying sites: %w", err)
	}
	defer rows.Close()

	var sites []types.Site
	for rows.Next() {
		var site types.Site
		if err := rows.Scan(&site.ID, &site.Name); err != nil {
			return nil, fmt.Errorf("scanning site row: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating site rows: %w", err)
	}
	return sites, nil
}

// SamplesForSite returns one site's samples in index order.
func (s *SQLiteSource) SamplesForSite(ctx context.Context, siteID int) ([]types.Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sample_index, sample_id, depth, est_age, quantity, quantity_type_code
		 FROM samples
		 WHERE site_id = ?
		 ORDER BY sample_index`,
		siteID)
	if err != nil {
		return nil, fmt.Errorf("querying samples for site %d: %w", siteID, err)
	}
	defer rows.Close()

	var samples []types.Sample
	for rows.Next() {
		var (
			index    int
			sampleID sql.NullString
			depth    sql.NullFloat64
			estAge   sql.NullFloat64
			quantity sql.NullFloat64
			code     sql.NullString
		)
		if err := rows.Scan(&index, &sampleID, &depth, &estAge, &quantity, &code); err != nil {
			return nil, fmt.Errorf("scanning sample row: %w", err)
		}
		samples = append(samples, types.Sample{
			Index:        index,
			SampleID:     sampleID.String,
			Depth:        fromNull(depth, s.sentinel),
			EstAge:       fromNull(estAge, s.sentinel),
			Quantity:     fromNull(quantity, s.sentinel),
			QuantityType: types.ParseQuantityType(code.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sample rows: %w", err)
	}
	return samples, nil
}

// Close closes the database file.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func fromNull(f sql.NullFloat64, sentinel float64) types.Value {
	if !f.Valid {
		return types.Missing()
	}
	return types.FromSentinel(f.Float64, sentinel)
}
