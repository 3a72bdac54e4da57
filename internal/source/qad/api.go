// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package qad

import (
	"context"
	"fmt"
	"time"

	"github.com/Barclays/research-data-science/internal/analysis"
	"github.com/Barclays/research-data-science/internal/config"
	"github.com/Barclays/research-data-science/internal/database"
	"github.com/Barclays/research-data-science/internal/panel"
	"github.com/Barclays/research-data-science/internal/secrets"
	"github.com/Barclays/research-data-science/internal/source"
	"github.com/Barclays/research-data-science/internal/units"
)

// Feature names the QAD module can attach to a panel.
const (
	FeatureClosingPrice           = "closing_price"
	FeatureClosingPriceUSD        = "closing_price_usd"
	FeatureSharePriceCurrency     = "share_price_currency"
	FeatureMarketCap              = "market_cap"
	FeatureConsolidatedShareCount = "consolidated_share_count"
	FeatureTotalReturnIndex       = "total_return_index"
	FeatureReturns                = "returns"
	FeatureTicker                 = "ticker"
	FeatureIssuerName             = "issuer_name"
	FeatureInfoCode               = "infocode"
	FeatureDividendsPerShare      = "dividends_per_share"
	FeatureDividendYield          = "dividend_yield"
)

// priceLookback widens data-layer date ranges so that month-end panel rows
// can pick up the last quote of a holiday-shortened week.
const priceLookback = 7 * 24 * time.Hour

// priceMerge is how QAD pricing observations land on panels: identifiers
// are stored abbreviated and values dated on the row date count.
var priceMerge = panel.MergeOptions{Abbreviated: true, AllowExactMatch: true}

type store interface {
	units.RatesProvider

	SPConstituents(ctx context.Context, indexCode string, start, end time.Time) ([]ConstituentInterval, error)
	ClosingPrices(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]PriceQuote, error)
	MarketCaps(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]panel.Observation, error)
	ShareCounts(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]panel.Observation, error)
	TotalReturnIndex(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]panel.Observation, error)
	DividendsPerShare(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]panel.Observation, error)
	Tickers(ctx context.Context, keyName string, keys []string) ([]panel.DimensionObservation, error)
	IssuerNames(ctx context.Context, keyName string, keys []string) ([]panel.DimensionObservation, error)
	InfoCodes(ctx context.Context, keyName string, keys []string) ([]panel.DimensionObservation, error)
	DatastreamConstituents(ctx context.Context, code int, start, end time.Time) ([]ConstituentInterval, error)
	DatastreamIndexSearch(ctx context.Context, match string) ([]DatastreamIndex, error)
	DatastreamIndexCode(ctx context.Context, name string) (int, error)
	Close()
}

// QAD is the stable API layer over the QAD pricing database.
type QAD struct {
	store store
}

// New connects to the QAD database and returns the module.
func New(ctx context.Context, cfg Config, provider secrets.Provider, dateFormat string) (*QAD, error) {
	connConfig, err := cfg.ConnConfig(provider)
	if err != nil {
		return nil, err
	}

	pool, err := database.Connect(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("error connecting to qad: %w", err)
	}
	return &QAD{store: NewStore(pool, dateFormat)}, nil
}

// FromStore builds the module over an existing store.
func FromStore(s *Store) *QAD {
	return &QAD{store: s}
}

func (q *QAD) Name() string {
	return config.ModuleQAD
}

func (q *QAD) Close() {
	q.store.Close()
}

// Rates exposes the module's exchange-rate quotes for currency conversion.
func (q *QAD) Rates() units.RatesProvider {
	return q.store
}

func (q *QAD) Features() []string {
	return []string{
		FeatureClosingPrice,
		FeatureClosingPriceUSD,
		FeatureSharePriceCurrency,
		FeatureMarketCap,
		FeatureConsolidatedShareCount,
		FeatureTotalReturnIndex,
		FeatureReturns,
		FeatureTicker,
		FeatureIssuerName,
		FeatureInfoCode,
		FeatureDividendsPerShare,
		FeatureDividendYield,
	}
}

// ApplyFeature attaches the named feature to the panel with last-known-value
// semantics over the panel's own date range.
func (q *QAD) ApplyFeature(ctx context.Context, p *panel.Panel, feature string) error {
	switch feature {
	case FeatureClosingPrice, FeatureSharePriceCurrency:
		return q.addClosingPrice(ctx, p)
	case FeatureClosingPriceUSD:
		return q.addClosingPriceUSD(ctx, p)
	case FeatureMarketCap:
		return q.addObservations(ctx, p, feature, q.store.MarketCaps)
	case FeatureConsolidatedShareCount:
		return q.addObservations(ctx, p, feature, q.store.ShareCounts)
	case FeatureTotalReturnIndex:
		return q.addObservations(ctx, p, feature, q.store.TotalReturnIndex)
	case FeatureDividendsPerShare:
		return q.addObservations(ctx, p, feature, q.store.DividendsPerShare)
	case FeatureReturns:
		return q.addReturns(ctx, p)
	case FeatureTicker:
		return q.addMasterDimension(ctx, p, feature, q.store.Tickers)
	case FeatureIssuerName:
		return q.addMasterDimension(ctx, p, feature, q.store.IssuerNames)
	case FeatureInfoCode:
		return q.addMasterDimension(ctx, p, feature, q.store.InfoCodes)
	case FeatureDividendYield:
		return q.addDividendYield(ctx, p)
	}
	return fmt.Errorf("%w: %q", source.ErrUnknownFeature, feature)
}

func (q *QAD) addClosingPrice(ctx context.Context, p *panel.Panel) error {
	start, end := p.DateRange(priceLookback)
	quotes, err := q.store.ClosingPrices(ctx, p.KeyName, p.Keys(true), start, end)
	if err != nil {
		return err
	}

	prices := make([]panel.Observation, 0, len(quotes))
	currencies := make([]panel.DimensionObservation, 0, len(quotes))
	for _, quote := range quotes {
		prices = append(prices, panel.Observation{Key: quote.Key, Date: quote.Date, Value: quote.Close})
		currencies = append(currencies, panel.DimensionObservation{Key: quote.Key, Date: quote.Date, Value: quote.Currency})
	}

	p.AsofMergeMeasure(ctx, FeatureClosingPrice, prices, priceMerge)
	p.AsofMergeDimension(ctx, FeatureSharePriceCurrency, currencies, priceMerge)
	return nil
}

// addClosingPriceUSD converts local closing prices into US dollars through
// the module's own exchange-rate quotes.
func (q *QAD) addClosingPriceUSD(ctx context.Context, p *panel.Panel) error {
	if !p.HasMeasure(FeatureClosingPrice) {
		if err := q.addClosingPrice(ctx, p); err != nil {
			return err
		}
	}
	return units.ConvertCurrency(ctx, p,
		FeatureClosingPrice, FeatureSharePriceCurrency, "USD", FeatureClosingPriceUSD, q.store)
}

func (q *QAD) addObservations(
	ctx context.Context,
	p *panel.Panel,
	measure string,
	fetch func(ctx context.Context, keyName string, keys []string, start, end time.Time) ([]panel.Observation, error),
) error {
	start, end := p.DateRange(priceLookback)
	observations, err := fetch(ctx, p.KeyName, p.Keys(true), start, end)
	if err != nil {
		return err
	}
	p.AsofMergeMeasure(ctx, measure, observations, priceMerge)
	return nil
}

// addReturns computes the one-period change of the total-return index along
// the panel's own date grid.
func (q *QAD) addReturns(ctx context.Context, p *panel.Panel) error {
	if err := q.addObservations(ctx, p, FeatureTotalReturnIndex, q.store.TotalReturnIndex); err != nil {
		return err
	}

	const lagged = FeatureTotalReturnIndex + "_previous"
	if err := analysis.LagOnDateByKey(p, FeatureTotalReturnIndex, lagged, 1); err != nil {
		return err
	}

	for i, row := range p.Rows {
		current, okCurrent := row.Measures[FeatureTotalReturnIndex]
		previous, okPrevious := row.Measures[lagged]
		if okCurrent && okPrevious && previous != 0 {
			p.SetMeasure(i, FeatureReturns, current/previous-1)
		}
	}
	p.DropMeasure(lagged)
	return nil
}

func (q *QAD) addMasterDimension(
	ctx context.Context,
	p *panel.Panel,
	dimension string,
	fetch func(ctx context.Context, keyName string, keys []string) ([]panel.DimensionObservation, error),
) error {
	observations, err := fetch(ctx, p.KeyName, p.Keys(true))
	if err != nil {
		return err
	}

	// The security master is not dated: stamp entries with the panel start
	// so the asof merge applies them everywhere.
	start, _ := p.DateRange(0)
	for i := range observations {
		observations[i].Date = start
	}
	p.AsofMergeDimension(ctx, dimension, observations, priceMerge)
	return nil
}

func (q *QAD) addDividendYield(ctx context.Context, p *panel.Panel) error {
	if !p.HasMeasure(FeatureClosingPrice) {
		if err := q.addClosingPrice(ctx, p); err != nil {
			return err
		}
	}
	if !p.HasMeasure(FeatureDividendsPerShare) {
		if err := q.addObservations(ctx, p, FeatureDividendsPerShare, q.store.DividendsPerShare); err != nil {
			return err
		}
	}

	for i, row := range p.Rows {
		dividend, okDividend := row.Measures[FeatureDividendsPerShare]
		price, okPrice := row.Measures[FeatureClosingPrice]
		if okDividend && okPrice && price != 0 {
			p.SetMeasure(i, FeatureDividendYield, dividend/price)
		}
	}
	return nil
}
