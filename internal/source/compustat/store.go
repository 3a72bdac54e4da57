// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package compustat implements the Compustat fundamentals data-source
// module. Fundamentals are keyed by gvkey, so the module first attaches a
// gvkey crosswalk dimension and merges everything else through it.
package compustat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Barclays/research-data-science/internal/panel"
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// annualItems maps fundamentals features to their column on the annual
// fundamentals table.
var annualItems = map[string]string{
	FeatureSales:          "sale",
	FeatureAssets:         "at",
	FeatureEBITDA:         "ebitda",
	FeatureNetIncome:      "ni",
	FeatureCapex:          "capx",
	FeatureTotalRevenue:   "revt",
	FeatureRAndD:          "xrd",
	FeaturePreferredStock: "pstk",
}

// quarterlyItems maps fundamentals features to their column on the
// quarterly fundamentals table.
var quarterlyItems = map[string]string{
	FeatureQuarterlyRevenue: "revtq",
}

// Store is the volatile data layer for Compustat.
type Store struct {
	db         DB
	dateFormat string
}

// NewStore wraps a database handle with the module's date layout.
func NewStore(db DB, dateFormat string) *Store {
	return &Store{db: db, dateFormat: dateFormat}
}

// Close releases the underlying connections.
func (s *Store) Close() {
	s.db.Close()
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, value := range values {
		quoted[i] = "'" + strings.ReplaceAll(value, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}

// GVKeys returns the gvkey for each full 9-character CUSIP.
func (s *Store) GVKeys(ctx context.Context, cusips []string) ([]panel.DimensionObservation, error) {
	query := fmt.Sprintf(`
		SELECT cusip, gvkey
		FROM security
		WHERE cusip IN (%s)`,
		quoteList(cusips))

	return s.dimensionQuery(ctx, query, "security")
}

// AnnualFundamental returns the dated values of an annual fundamentals item,
// keyed by gvkey and dated on the fiscal period end.
func (s *Store) AnnualFundamental(ctx context.Context, gvkeys []string, item string, start, end time.Time) ([]panel.Observation, error) {
	return s.fundamental(ctx, "funda", gvkeys, item, start, end)
}

// QuarterlyFundamental returns the dated values of a quarterly fundamentals
// item, keyed by gvkey and dated on the fiscal period end.
func (s *Store) QuarterlyFundamental(ctx context.Context, gvkeys []string, item string, start, end time.Time) ([]panel.Observation, error) {
	return s.fundamental(ctx, "fundq", gvkeys, item, start, end)
}

func (s *Store) fundamental(ctx context.Context, table string, gvkeys []string, item string, start, end time.Time) ([]panel.Observation, error) {
	query := fmt.Sprintf(`
		SELECT gvkey, datadate, %s
		FROM %s
		WHERE gvkey IN (%s)
		  AND indfmt = 'INDL' AND datafmt = 'STD' AND consol = 'C'
		  AND %s IS NOT NULL
		  AND datadate BETWEEN '%s' AND '%s'`,
		item, table, quoteList(gvkeys), item,
		start.Format(s.dateFormat), end.Format(s.dateFormat))

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", table, err)
	}
	defer rows.Close()

	var observations []panel.Observation
	for rows.Next() {
		var obs panel.Observation
		if err := rows.Scan(&obs.Key, &obs.Date, &obs.Value); err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", table, err)
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

// IPODates returns each company's IPO date, formatted with the module's
// date layout, keyed by gvkey.
func (s *Store) IPODates(ctx context.Context, gvkeys []string) ([]panel.DimensionObservation, error) {
	query := fmt.Sprintf(`
		SELECT gvkey, to_char(ipodate, 'YYYY-MM-DD')
		FROM company
		WHERE gvkey IN (%s) AND ipodate IS NOT NULL`,
		quoteList(gvkeys))

	return s.dimensionQuery(ctx, query, "company")
}

// CIKs returns each company's SEC central index key, keyed by gvkey.
func (s *Store) CIKs(ctx context.Context, gvkeys []string) ([]panel.DimensionObservation, error) {
	query := fmt.Sprintf(`
		SELECT gvkey, cik
		FROM company
		WHERE gvkey IN (%s) AND cik IS NOT NULL`,
		quoteList(gvkeys))

	return s.dimensionQuery(ctx, query, "company")
}

// GICCodes returns each company's GIC industry code, keyed by gvkey.
func (s *Store) GICCodes(ctx context.Context, gvkeys []string) ([]panel.DimensionObservation, error) {
	query := fmt.Sprintf(`
		SELECT gvkey, gind
		FROM company
		WHERE gvkey IN (%s) AND gind IS NOT NULL`,
		quoteList(gvkeys))

	return s.dimensionQuery(ctx, query, "company")
}

func (s *Store) dimensionQuery(ctx context.Context, query, table string) ([]panel.DimensionObservation, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", table, err)
	}
	defer rows.Close()

	var observations []panel.DimensionObservation
	for rows.Next() {
		var obs panel.DimensionObservation
		if err := rows.Scan(&obs.Key, &obs.Value); err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", table, err)
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}
