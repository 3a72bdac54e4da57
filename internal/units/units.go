// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package units converts panel measures between currencies. Exchange rates
// come from a data-source module through the RatesProvider interface, so
// conversion logic stays independent of where the rates are stored.
package units

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Barclays/research-data-science/internal/panel"
)

// RateWindow is how far back from a row date a quoted rate may be taken.
// Rates are quoted on trading days, so a week covers any exchange holiday.
const RateWindow = 7 * 24 * time.Hour

// ErrMissingCurrency reports rows without a currency dimension.
var ErrMissingCurrency = errors.New("missing currency dimension")

// Rate is a dated exchange-rate quote: one unit of FromCurrency buys Rate
// units of ToCurrency.
type Rate struct {
	FromCurrency string
	ToCurrency   string
	Date         time.Time
	Value        float64
}

// RatesProvider fetches exchange-rate quotes for the given currency pairs
// over a date range.
type RatesProvider interface {
	ExchangeRates(ctx context.Context, fromCurrencies []string, toCurrency string, start, end time.Time) ([]Rate, error)
}

// penceUnits maps minor currency codes to their major unit. Prices on
// London and Dublin listings are commonly quoted in pence.
var penceUnits = map[string]string{
	"GBp": "GBP",
	"IEp": "IEP",
}

// normalizeCurrency resolves a possibly minor currency code to its major
// unit and the factor that converts amounts into it.
func normalizeCurrency(currency string) (string, float64) {
	if major, ok := penceUnits[currency]; ok {
		return major, 0.01
	}
	return currency, 1
}

// ConvertCurrency writes as out the measure converted into toCurrency, using
// each row's currencyDimension as the source currency. Same-currency rows
// are copied without touching the provider; pence-quoted rows are scaled to
// their major unit first. Rows whose window holds no quote keep no value.
func ConvertCurrency(
	ctx context.Context,
	p *panel.Panel,
	measure, currencyDimension, toCurrency, out string,
	provider RatesProvider,
) error {
	targetMajor, targetScale := normalizeCurrency(toCurrency)

	fromCurrencies := make([]string, 0)
	seen := map[string]struct{}{}
	for _, row := range p.Rows {
		if _, ok := row.Measures[measure]; !ok {
			continue
		}
		currency, ok := row.Dimensions[currencyDimension]
		if !ok || currency == "" {
			return fmt.Errorf("%w: row %s %s has no %q",
				ErrMissingCurrency, row.Key, row.Date.Format("2006-01-02"), currencyDimension)
		}
		major, _ := normalizeCurrency(currency)
		if major == targetMajor {
			continue
		}
		if _, ok := seen[major]; !ok {
			seen[major] = struct{}{}
			fromCurrencies = append(fromCurrencies, major)
		}
	}
	sort.Strings(fromCurrencies)

	quotes := map[string][]Rate{}
	if len(fromCurrencies) > 0 {
		start, end := p.DateRange(RateWindow)
		rates, err := provider.ExchangeRates(ctx, fromCurrencies, targetMajor, start, end)
		if err != nil {
			return fmt.Errorf("error fetching exchange rates: %w", err)
		}
		for _, rate := range rates {
			quotes[rate.FromCurrency] = append(quotes[rate.FromCurrency], rate)
		}
		for currency := range quotes {
			sort.SliceStable(quotes[currency], func(i, j int) bool {
				return quotes[currency][i].Date.Before(quotes[currency][j].Date)
			})
		}
	}

	for i, row := range p.Rows {
		value, ok := row.Measures[measure]
		if !ok {
			continue
		}

		major, scale := normalizeCurrency(row.Dimensions[currencyDimension])
		if major == targetMajor {
			p.SetMeasure(i, out, value*scale/targetScale)
			continue
		}

		rate, ok := lastRateBefore(quotes[major], row.Date)
		if !ok {
			continue
		}
		p.SetMeasure(i, out, value*scale*rate/targetScale)
	}
	return nil
}

// ConvertPenceToPounds rescales pence-quoted rows of measure into their
// major currency in place, updating currencyDimension accordingly.
func ConvertPenceToPounds(p *panel.Panel, measure, currencyDimension string) {
	for i, row := range p.Rows {
		major, ok := penceUnits[row.Dimensions[currencyDimension]]
		if !ok {
			continue
		}
		if value, present := row.Measures[measure]; present {
			p.SetMeasure(i, measure, value/100)
		}
		p.SetDimension(i, currencyDimension, major)
	}
}

// lastRateBefore returns the latest quote at or before cutoff, provided it
// falls inside the rate window.
func lastRateBefore(rates []Rate, cutoff time.Time) (float64, bool) {
	n := sort.Search(len(rates), func(i int) bool {
		return rates[i].Date.After(cutoff)
	})
	if n == 0 {
		return 0, false
	}
	quote := rates[n-1]
	if cutoff.Sub(quote.Date) > RateWindow {
		return 0, false
	}
	return quote.Value, true
}
