// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package compustat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barclays/research-data-science/internal/panel"
	"github.com/Barclays/research-data-science/internal/source"
)

type fakeStore struct {
	gvkeys       []panel.DimensionObservation
	observations []panel.Observation
	dimensions   []panel.DimensionObservation
	err          error

	requestedGVKeys []string
	requestedItem   string
	closed          bool
}

func (f *fakeStore) GVKeys(context.Context, []string) ([]panel.DimensionObservation, error) {
	return f.gvkeys, f.err
}

func (f *fakeStore) AnnualFundamental(_ context.Context, gvkeys []string, item string, _, _ time.Time) ([]panel.Observation, error) {
	f.requestedGVKeys = gvkeys
	f.requestedItem = item
	return f.observations, f.err
}

func (f *fakeStore) QuarterlyFundamental(_ context.Context, gvkeys []string, item string, _, _ time.Time) ([]panel.Observation, error) {
	f.requestedGVKeys = gvkeys
	f.requestedItem = item
	return f.observations, f.err
}

func (f *fakeStore) IPODates(context.Context, []string) ([]panel.DimensionObservation, error) {
	return f.dimensions, f.err
}

func (f *fakeStore) CIKs(context.Context, []string) ([]panel.DimensionObservation, error) {
	return f.dimensions, f.err
}

func (f *fakeStore) GICCodes(context.Context, []string) ([]panel.DimensionObservation, error) {
	return f.dimensions, f.err
}

func (f *fakeStore) Close() { f.closed = true }

func monthlyPanel(t *testing.T) *panel.Panel {
	t.Helper()
	p, err := panel.New(panel.KeyNameCusip, []string{"037833100"}, date("2023-01-31"), date("2023-02-28"), panel.MonthEnd)
	require.NoError(t, err)
	return p
}

func TestApplyFeatureGVKey(t *testing.T) {
	t.Parallel()

	store := &fakeStore{gvkeys: []panel.DimensionObservation{
		{Key: "037833100", Value: "001690"},
	}}
	module := &Compustat{store: store}
	p := monthlyPanel(t)

	require.NoError(t, module.ApplyFeature(context.Background(), p, FeatureGVKey))
	for _, row := range p.Rows {
		assert.Equal(t, "001690", row.Dimensions[FeatureGVKey])
	}
}

func TestApplyFeatureSales(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		gvkeys: []panel.DimensionObservation{
			{Key: "037833100", Value: "001690"},
		},
		observations: []panel.Observation{
			{Key: "001690", Date: date("2022-09-30"), Value: 394328},
		},
	}
	module := &Compustat{store: store}
	p := monthlyPanel(t)

	require.NoError(t, module.ApplyFeature(context.Background(), p, FeatureSales))

	assert.Equal(t, []string{"001690"}, store.requestedGVKeys, "crosswalk is attached before fundamentals")
	assert.Equal(t, "sale", store.requestedItem)
	assert.Equal(t, 394328.0, p.Rows[0].Measures[FeatureSales], "last reported period is carried forward")
	assert.Equal(t, 394328.0, p.Rows[1].Measures[FeatureSales])
}

func TestApplyFeatureQuarterlyRevenue(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		gvkeys: []panel.DimensionObservation{{Key: "037833100", Value: "001690"}},
	}
	module := &Compustat{store: store}

	require.NoError(t, module.ApplyFeature(context.Background(), monthlyPanel(t), FeatureQuarterlyRevenue))
	assert.Equal(t, "revtq", store.requestedItem)
}

func TestApplyFeatureCIK(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		gvkeys:     []panel.DimensionObservation{{Key: "037833100", Value: "001690"}},
		dimensions: []panel.DimensionObservation{{Key: "001690", Value: "0000320193"}},
	}
	module := &Compustat{store: store}
	p := monthlyPanel(t)

	require.NoError(t, module.ApplyFeature(context.Background(), p, FeatureCIK))
	assert.Equal(t, "0000320193", p.Rows[0].Dimensions[FeatureCIK])
}

func TestApplyFeatureGICSector(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		gvkeys:     []panel.DimensionObservation{{Key: "037833100", Value: "001690"}},
		dimensions: []panel.DimensionObservation{{Key: "001690", Value: "452020"}},
	}
	module := &Compustat{store: store}
	p := monthlyPanel(t)

	require.NoError(t, module.ApplyFeature(context.Background(), p, FeatureGICSector))
	assert.Equal(t, "452020", p.Rows[0].Dimensions[FeatureGICCode])
	assert.Equal(t, "Information Technology", p.Rows[0].Dimensions[FeatureGICSector],
		"the sector name comes from the code's leading digits")
}

func TestApplyFeatureRejectsSedolPanels(t *testing.T) {
	t.Parallel()

	module := &Compustat{store: &fakeStore{}}
	p := &panel.Panel{KeyName: panel.KeyNameSedol, Rows: []panel.Row{
		{Key: "B0YBKJ7", Date: date("2023-01-31")},
	}}

	err := module.ApplyFeature(context.Background(), p, FeatureSales)
	assert.ErrorIs(t, err, panel.ErrUnsupportedKeyName)
}

func TestApplyFeatureUnknown(t *testing.T) {
	t.Parallel()

	store := &fakeStore{gvkeys: []panel.DimensionObservation{{Key: "037833100", Value: "001690"}}}
	module := &Compustat{store: store}

	err := module.ApplyFeature(context.Background(), monthlyPanel(t), "eps_surprise")
	assert.ErrorIs(t, err, source.ErrUnknownFeature)
}

func TestModuleMetadata(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	module := &Compustat{store: store}

	assert.Equal(t, "compustat", module.Name())
	assert.Contains(t, module.Features(), FeatureSales)

	module.Close()
	assert.True(t, store.closed)
}
