// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package units

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barclays/research-data-science/internal/panel"
)

type fakeRates struct {
	rates []Rate
	err   error

	requestedFrom []string
	requestedTo   string
}

func (f *fakeRates) ExchangeRates(_ context.Context, fromCurrencies []string, toCurrency string, _, _ time.Time) ([]Rate, error) {
	f.requestedFrom = fromCurrencies
	f.requestedTo = toCurrency
	return f.rates, f.err
}

func date(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func priceRow(key, day, currency string, price float64) panel.Row {
	return panel.Row{
		Key:        key,
		Date:       date(day),
		Dimensions: map[string]string{"currency": currency},
		Measures:   map[string]float64{"price": price},
	}
}

func TestConvertCurrency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("converts with last quote in window", func(t *testing.T) {
		t.Parallel()

		p := &panel.Panel{KeyName: panel.KeyNameSedol, Rows: []panel.Row{
			priceRow("B0YBKJ7", "2023-01-31", "GBP", 10),
			priceRow("5505072", "2023-01-31", "EUR", 20),
		}}
		provider := &fakeRates{rates: []Rate{
			{FromCurrency: "GBP", ToCurrency: "USD", Date: date("2023-01-27"), Value: 1.24},
			{FromCurrency: "GBP", ToCurrency: "USD", Date: date("2023-01-30"), Value: 1.23},
			{FromCurrency: "EUR", ToCurrency: "USD", Date: date("2023-01-30"), Value: 1.08},
		}}

		require.NoError(t, ConvertCurrency(ctx, p, "price", "currency", "USD", "price_usd", provider))

		assert.Equal(t, []string{"EUR", "GBP"}, provider.requestedFrom)
		assert.Equal(t, "USD", provider.requestedTo)
		assert.InDelta(t, 12.3, p.Rows[0].Measures["price_usd"], 1e-9)
		assert.InDelta(t, 21.6, p.Rows[1].Measures["price_usd"], 1e-9)
	})

	t.Run("same currency skips the provider", func(t *testing.T) {
		t.Parallel()

		p := &panel.Panel{KeyName: panel.KeyNameSedol, Rows: []panel.Row{
			priceRow("B0YBKJ7", "2023-01-31", "USD", 42),
		}}
		provider := &fakeRates{err: errors.New("must not be called")}

		require.NoError(t, ConvertCurrency(ctx, p, "price", "currency", "USD", "price_usd", provider))
		assert.Equal(t, 42.0, p.Rows[0].Measures["price_usd"])
		assert.Nil(t, provider.requestedFrom)
	})

	t.Run("pence quotes scale to pounds before converting", func(t *testing.T) {
		t.Parallel()

		p := &panel.Panel{KeyName: panel.KeyNameSedol, Rows: []panel.Row{
			priceRow("B0YBKJ7", "2023-01-31", "GBp", 250),
		}}
		provider := &fakeRates{rates: []Rate{
			{FromCurrency: "GBP", ToCurrency: "USD", Date: date("2023-01-31"), Value: 1.2},
		}}

		require.NoError(t, ConvertCurrency(ctx, p, "price", "currency", "USD", "price_usd", provider))
		assert.Equal(t, []string{"GBP"}, provider.requestedFrom)
		assert.InDelta(t, 3.0, p.Rows[0].Measures["price_usd"], 1e-9)
	})

	t.Run("pence target expands the pound rate", func(t *testing.T) {
		t.Parallel()

		p := &panel.Panel{KeyName: panel.KeyNameSedol, Rows: []panel.Row{
			priceRow("B0YBKJ7", "2023-01-31", "USD", 1.2),
		}}
		provider := &fakeRates{rates: []Rate{
			{FromCurrency: "USD", ToCurrency: "GBP", Date: date("2023-01-31"), Value: 0.8},
		}}

		require.NoError(t, ConvertCurrency(ctx, p, "price", "currency", "GBp", "price_gbp", provider))
		assert.Equal(t, "GBP", provider.requestedTo)
		assert.InDelta(t, 96.0, p.Rows[0].Measures["price_gbp"], 1e-9)
	})

	t.Run("stale quote outside window is dropped", func(t *testing.T) {
		t.Parallel()

		p := &panel.Panel{KeyName: panel.KeyNameSedol, Rows: []panel.Row{
			priceRow("B0YBKJ7", "2023-01-31", "GBP", 10),
		}}
		provider := &fakeRates{rates: []Rate{
			{FromCurrency: "GBP", ToCurrency: "USD", Date: date("2023-01-10"), Value: 1.2},
		}}

		require.NoError(t, ConvertCurrency(ctx, p, "price", "currency", "USD", "price_usd", provider))
		_, ok := p.Rows[0].Measures["price_usd"]
		assert.False(t, ok)
	})

	t.Run("missing currency dimension", func(t *testing.T) {
		t.Parallel()

		p := &panel.Panel{KeyName: panel.KeyNameSedol, Rows: []panel.Row{
			{Key: "B0YBKJ7", Date: date("2023-01-31"), Measures: map[string]float64{"price": 1}},
		}}

		err := ConvertCurrency(ctx, p, "price", "currency", "USD", "price_usd", &fakeRates{})
		assert.ErrorIs(t, err, ErrMissingCurrency)
	})

	t.Run("provider errors are wrapped", func(t *testing.T) {
		t.Parallel()

		p := &panel.Panel{KeyName: panel.KeyNameSedol, Rows: []panel.Row{
			priceRow("B0YBKJ7", "2023-01-31", "EUR", 1),
		}}
		providerErr := errors.New("connection reset")

		err := ConvertCurrency(ctx, p, "price", "currency", "USD", "price_usd", &fakeRates{err: providerErr})
		assert.ErrorIs(t, err, providerErr)
	})
}

func TestConvertPenceToPounds(t *testing.T) {
	t.Parallel()

	p := &panel.Panel{KeyName: panel.KeyNameSedol, Rows: []panel.Row{
		priceRow("B0YBKJ7", "2023-01-31", "GBp", 250),
		priceRow("5505072", "2023-01-31", "IEp", 120),
		priceRow("2046251", "2023-01-31", "USD", 42),
	}}

	ConvertPenceToPounds(p, "price", "currency")

	assert.Equal(t, 2.5, p.Rows[0].Measures["price"])
	assert.Equal(t, "GBP", p.Rows[0].Dimensions["currency"])
	assert.Equal(t, 1.2, p.Rows[1].Measures["price"])
	assert.Equal(t, "IEP", p.Rows[1].Dimensions["currency"])
	assert.Equal(t, 42.0, p.Rows[2].Measures["price"])
	assert.Equal(t, "USD", p.Rows[2].Dimensions["currency"])
}
