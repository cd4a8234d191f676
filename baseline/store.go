// Package baseline persists the bloom peak day-of-year of past seasons per region and species,
// providing the historical baselines used for anomaly reporting.
package baseline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/florasat/go-phenology/bloom"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrInvalidDayOfYear  = errors.New("day of year must be within 1 and 366")
)

// Store reads and records historical peak days
type Store interface {
	PeakDays(ctx context.Context, region, species string) (bloom.HistoricalBaseline, error)
	RecordPeak(ctx context.Context, region, species string, year, doy int) error
}

const createTable = `CREATE TABLE IF NOT EXISTS historical_peaks (
	region   TEXT    NOT NULL,
	species  TEXT    NOT NULL,
	year     INTEGER NOT NULL,
	peak_doy INTEGER NOT NULL,
	PRIMARY KEY (region, species, year)
)`

const selectPeaks = `SELECT year, peak_doy FROM historical_peaks WHERE region = ? AND species = ? ORDER BY year`

const upsertPeak = `INSERT INTO historical_peaks (region, species, year, peak_doy) VALUES (?, ?, ?, ?)
ON CONFLICT (region, species, year) DO UPDATE SET peak_doy = excluded.peak_doy`

// SQLStore keeps peak days in a historical_peaks table of a sqlite or postgres database
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore wraps an open database. driver is the name the database was opened with and
// selects the placeholder style.
func NewSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("%q, %w", driver, ErrUnsupportedDriver)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// Open connects to the database and creates the table if needed
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s database, %w", driver, err)
	}
	if driver == "sqlite" {
		// a single connection keeps in-memory databases shared between calls
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach %s database, %w", driver, err)
	}

	s, err := NewSQLStore(db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the historical_peaks table
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("unable to create historical_peaks table, %w", err)
	}
	return nil
}

// PeakDays returns every recorded peak day of a region and species. An unknown pair yields an
// empty baseline.
func (s *SQLStore) PeakDays(ctx context.Context, region, species string) (bloom.HistoricalBaseline, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(selectPeaks), region, species)
	if err != nil {
		return nil, fmt.Errorf("unable to query peak days, %w", err)
	}
	defer rows.Close()

	history := make(bloom.HistoricalBaseline)
	for rows.Next() {
		var year, doy int
		if err := rows.Scan(&year, &doy); err != nil {
			return nil, fmt.Errorf("unable to scan peak day, %w", err)
		}
		history[year] = doy
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read peak days, %w", err)
	}
	return history, nil
}

// RecordPeak stores the peak day of a season, replacing any previous value for that year
func (s *SQLStore) RecordPeak(ctx context.Context, region, species string, year, doy int) error {
	if doy < 1 || doy > 366 {
		return fmt.Errorf("%d, %w", doy, ErrInvalidDayOfYear)
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(upsertPeak), region, species, year, doy); err != nil {
		return fmt.Errorf("unable to record peak day, %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to the numbered form postgres expects
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
