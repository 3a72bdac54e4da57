// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package qad implements the QAD data-source module. The store issues the
// raw pricing and reference queries, the QAD type on top normalizes the
// results into panel features.
package qad

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Barclays/research-data-science/internal/panel"
	"github.com/Barclays/research-data-science/internal/units"
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// keyColumns maps panel key names to their security-master column.
var keyColumns = map[string]string{
	panel.KeyNameCusip: "cusip",
	panel.KeyNameSedol: "sedol",
}

// ConstituentInterval is an index-membership interval. A zero Thru means
// the security is still a member.
type ConstituentInterval struct {
	Key  string
	From time.Time
	Thru time.Time
}

// PriceQuote is a dated closing price with its quote currency.
type PriceQuote struct {
	Key      string
	Date     time.Time
	Close    float64
	Currency string
}

// DatastreamIndex is a Datastream index-list entry.
type DatastreamIndex struct {
	Code     int
	Mnemonic string
	Name     string
}

// Store is the volatile data layer for QAD: each method issues one query
// and returns rows as fetched, with dates interpolated using the configured
// layout and identifier keys abbreviated to the vendor form.
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

func (s *Store) formatDate(t time.Time) string {
	return t.Format(s.dateFormat)
}

// quoteList renders keys as a quoted SQL list. Identifiers are alphanumeric
// by construction, single quotes are doubled as a safety net.
func quoteList(keys []string) string {
	quoted := make([]string, len(keys))
	for i, key := range keys {
		quoted[i] = "'" + strings.ReplaceAll(key, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}

func keyColumn(keyName string) (string, error) {
	column, ok := keyColumns[keyName]
	if !ok {
		return "", fmt.Errorf("%w: %q", panel.ErrUnsupportedKeyName, keyName)
	}
	return column, nil
}

// SPConstituents returns the S&P membership intervals overlapping the date
// range for the given index code, "500" or "1500", keyed by abbreviated
// CUSIP.
func (s *Store) SPConstituents(ctx context.Context, indexCode string, start, end time.Time) ([]ConstituentInterval, error) {
	query := fmt.Sprintf(`
		SELECT m.cusip, c.from_, c.thru
		FROM spidxcst c
		JOIN secmstrx m ON m.seccode = c.seccode
		WHERE c.idxcode = $1
		  AND c.from_ <= '%s'
		  AND (c.thru IS NULL OR c.thru >= '%s')`,
		s.formatDate(end), s.formatDate(start))

	rows, err := s.db.Query(ctx, query, indexCode)
	if err != nil {
		return nil, fmt.Errorf("error querying s&p constituents: %w", err)
	}
	return scanIntervals(rows)
}

// ClosingPrices returns daily closing prices with their quote currency for
// the abbreviated keys over the date range.
func (s *Store) ClosingPrices(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]PriceQuote, error) {
	column, err := keyColumn(keyName)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT m.%s, p.marketdate, p.close_, p.currency
		FROM ds2primqtprc p
		JOIN secmstrx m ON m.seccode = p.seccode
		WHERE m.%s IN (%s)
		  AND p.marketdate BETWEEN '%s' AND '%s'`,
		column, column, quoteList(keys), s.formatDate(start), s.formatDate(end))

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying closing prices: %w", err)
	}
	defer rows.Close()

	var quotes []PriceQuote
	for rows.Next() {
		var quote PriceQuote
		if err := rows.Scan(&quote.Key, &quote.Date, &quote.Close, &quote.Currency); err != nil {
			return nil, fmt.Errorf("error scanning closing price: %w", err)
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

// ExchangeRates returns dated mid rates for each from-currency into
// toCurrency. It satisfies units.RatesProvider.
func (s *Store) ExchangeRates(ctx context.Context, fromCurrencies []string, toCurrency string, start, end time.Time) ([]units.Rate, error) {
	query := fmt.Sprintf(`
		SELECT c.fromcurrcode, c.tocurrcode, r.exratedate, r.midrate
		FROM ds2fxrate r
		JOIN ds2fxcode c ON c.exratecode = r.exratecode
		WHERE c.fromcurrcode IN (%s)
		  AND c.tocurrcode = $1
		  AND r.exratedate BETWEEN '%s' AND '%s'`,
		quoteList(fromCurrencies), s.formatDate(start), s.formatDate(end))

	rows, err := s.db.Query(ctx, query, toCurrency)
	if err != nil {
		return nil, fmt.Errorf("error querying exchange rates: %w", err)
	}
	defer rows.Close()

	var rates []units.Rate
	for rows.Next() {
		var rate units.Rate
		if err := rows.Scan(&rate.FromCurrency, &rate.ToCurrency, &rate.Date, &rate.Value); err != nil {
			return nil, fmt.Errorf("error scanning exchange rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

// MarketCaps returns dated consolidated market values.
func (s *Store) MarketCaps(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]panel.Observation, error) {
	return s.observations(ctx, keyName, keys, start, end, "ds2mktval", "valdate", "consolmktval")
}

// ShareCounts returns dated consolidated numbers of shares outstanding.
func (s *Store) ShareCounts(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]panel.Observation, error) {
	return s.observations(ctx, keyName, keys, start, end, "ds2numshares", "eventdate", "numshrs")
}

// TotalReturnIndex returns the dated total-return index level.
func (s *Store) TotalReturnIndex(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]panel.Observation, error) {
	return s.observations(ctx, keyName, keys, start, end, "ds2totretidx", "marketdate", "ri")
}

// DividendsPerShare returns dated dividend rates.
func (s *Store) DividendsPerShare(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]panel.Observation, error) {
	return s.observations(ctx, keyName, keys, start, end, "ds2div", "effectivedate", "divrate")
}

func (s *Store) observations(ctx context.Context, keyName string, keys []string, start, end time.Time, table, dateColumn, valueColumn string) ([]panel.Observation, error) {
	column, err := keyColumn(keyName)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT m.%s, t.%s, t.%s
		FROM %s t
		JOIN secmstrx m ON m.seccode = t.seccode
		WHERE m.%s IN (%s)
		  AND t.%s BETWEEN '%s' AND '%s'`,
		column, dateColumn, valueColumn,
		table, column, quoteList(keys),
		dateColumn, s.formatDate(start), s.formatDate(end))

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

// Tickers returns the current ticker for each abbreviated key.
func (s *Store) Tickers(ctx context.Context, keyName string, keys []string) ([]panel.DimensionObservation, error) {
	return s.masterDimension(ctx, keyName, keys, "ticker")
}

// IssuerNames returns the issuer name for each abbreviated key.
func (s *Store) IssuerNames(ctx context.Context, keyName string, keys []string) ([]panel.DimensionObservation, error) {
	return s.masterDimension(ctx, keyName, keys, "issuer")
}

// InfoCodes returns the Datastream infocode crosswalk for each abbreviated
// key, the identifier the Datastream tables are natively keyed on.
func (s *Store) InfoCodes(ctx context.Context, keyName string, keys []string) ([]panel.DimensionObservation, error) {
	return s.masterDimension(ctx, keyName, keys, "infocode")
}

func (s *Store) masterDimension(ctx context.Context, keyName string, keys []string, valueColumn string) ([]panel.DimensionObservation, error) {
	column, err := keyColumn(keyName)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT m.%s, m.%s
		FROM secmstrx m
		WHERE m.%s IN (%s)`,
		column, valueColumn, column, quoteList(keys))

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying security master: %w", err)
	}
	defer rows.Close()

	var observations []panel.DimensionObservation
	for rows.Next() {
		var obs panel.DimensionObservation
		if err := rows.Scan(&obs.Key, &obs.Value); err != nil {
			return nil, fmt.Errorf("error scanning security master: %w", err)
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

// DatastreamConstituents returns membership intervals of the Datastream
// index list with the given code, keyed by abbreviated SEDOL.
func (s *Store) DatastreamConstituents(ctx context.Context, code int, start, end time.Time) ([]ConstituentInterval, error) {
	query := fmt.Sprintf(`
		SELECT m.sedol, c.from_, c.thru
		FROM ds2indexconst c
		JOIN secmstrx m ON m.seccode = c.seccode
		WHERE c.indexlistintcode = $1
		  AND c.from_ <= '%s'
		  AND (c.thru IS NULL OR c.thru >= '%s')`,
		s.formatDate(end), s.formatDate(start))

	rows, err := s.db.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("error querying datastream constituents: %w", err)
	}
	return scanIntervals(rows)
}

// DatastreamIndexSearch returns the index lists whose mnemonic or name
// matches the query, case insensitively.
func (s *Store) DatastreamIndexSearch(ctx context.Context, match string) ([]DatastreamIndex, error) {
	rows, err := s.db.Query(ctx, `
		SELECT indexlistintcode, indexlistmnem, indexlistname
		FROM ds2indexlist
		WHERE indexlistmnem ILIKE $1 OR indexlistname ILIKE $1
		ORDER BY indexlistintcode`,
		"%"+match+"%")
	if err != nil {
		return nil, fmt.Errorf("error searching datastream indexes: %w", err)
	}
	defer rows.Close()

	var indexes []DatastreamIndex
	for rows.Next() {
		var index DatastreamIndex
		if err := rows.Scan(&index.Code, &index.Mnemonic, &index.Name); err != nil {
			return nil, fmt.Errorf("error scanning datastream index: %w", err)
		}
		indexes = append(indexes, index)
	}
	return indexes, rows.Err()
}

// DatastreamIndexCode resolves an exact index-list mnemonic or name to its
// code.
func (s *Store) DatastreamIndexCode(ctx context.Context, name string) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT indexlistintcode
		FROM ds2indexlist
		WHERE indexlistmnem = $1 OR indexlistname = $1`,
		name)
	if err != nil {
		return 0, fmt.Errorf("error resolving datastream index %q: %w", name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("datastream index %q not found", name)
	}

	var code int
	if err := rows.Scan(&code); err != nil {
		return 0, fmt.Errorf("error scanning datastream index code: %w", err)
	}
	return code, rows.Err()
}

func scanIntervals(rows pgx.Rows) ([]ConstituentInterval, error) {
	defer rows.Close()

	var intervals []ConstituentInterval
	for rows.Next() {
		var interval ConstituentInterval
		var thru *time.Time
		if err := rows.Scan(&interval.Key, &interval.From, &thru); err != nil {
			return nil, fmt.Errorf("error scanning membership interval: %w", err)
		}
		if thru != nil {
			interval.Thru = *thru
		}
		intervals = append(intervals, interval)
	}
	return intervals, rows.Err()
}
