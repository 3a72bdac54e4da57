// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barclays/research-data-science/internal/panel"
)

func date(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func row(key, day string, measures map[string]float64) panel.Row {
	return panel.Row{Key: key, Date: date(day), Measures: measures}
}

func TestLagOnDateByKey(t *testing.T) {
	t.Parallel()

	p := &panel.Panel{KeyName: panel.KeyNameCusip, Rows: []panel.Row{
		row("037833100", "2023-03-31", map[string]float64{"price": 164}),
		row("037833100", "2023-01-31", map[string]float64{"price": 144}),
		row("037833100", "2023-02-28", map[string]float64{"price": 147}),
		row("17275R102", "2023-01-31", map[string]float64{"price": 48}),
		row("17275R102", "2023-02-28", map[string]float64{"price": 49}),
	}}

	require.NoError(t, LagOnDateByKey(p, "price", "price_lag1", 1))

	byIndex := indexMeasures(p, "price_lag1")
	assert.Equal(t, 144.0, byIndex["037833100|2023-02-28"])
	assert.Equal(t, 147.0, byIndex["037833100|2023-03-31"])
	assert.Equal(t, 48.0, byIndex["17275R102|2023-02-28"])
	assert.NotContains(t, byIndex, "037833100|2023-01-31")
	assert.NotContains(t, byIndex, "17275R102|2023-01-31")

	assert.ErrorIs(t, LagOnDateByKey(p, "price", "bad", -1), ErrBadArgument)
}

func TestLagByMonthOffset(t *testing.T) {
	t.Parallel()

	p := &panel.Panel{KeyName: panel.KeyNameCusip, Rows: []panel.Row{
		row("037833100", "2023-01-31", map[string]float64{"sales": 100}),
		row("037833100", "2023-04-30", map[string]float64{"sales": 110}),
		row("037833100", "2023-07-31", map[string]float64{"sales": 120}),
	}}

	require.NoError(t, LagByMonthOffset(p, "sales", "sales_3m_ago", 3))

	byIndex := indexMeasures(p, "sales_3m_ago")
	assert.Equal(t, 100.0, byIndex["037833100|2023-04-30"])
	assert.Equal(t, 110.0, byIndex["037833100|2023-07-31"])
	// 2022-10-31 has no observation, so January stays empty.
	assert.NotContains(t, byIndex, "037833100|2023-01-31")
}

func TestRankOnDateByKey(t *testing.T) {
	t.Parallel()

	p := &panel.Panel{KeyName: panel.KeyNameCusip, Rows: []panel.Row{
		row("A0000000A", "2023-01-31", map[string]float64{"mcap": 30}),
		row("B0000000B", "2023-01-31", map[string]float64{"mcap": 10}),
		row("C0000000C", "2023-01-31", map[string]float64{"mcap": 20}),
		row("D0000000D", "2023-01-31", map[string]float64{"mcap": 20}),
		row("E0000000E", "2023-01-31", nil),
		row("F0000000F", "2023-01-31", map[string]float64{"mcap": 15, panel.MeasureInIndex: 0}),
	}}

	RankOnDateByKey(p, "mcap", "mcap_rank", true)

	byIndex := indexMeasures(p, "mcap_rank")
	assert.Equal(t, 1.0, byIndex["B0000000B|2023-01-31"])
	assert.Equal(t, 2.5, byIndex["C0000000C|2023-01-31"])
	assert.Equal(t, 2.5, byIndex["D0000000D|2023-01-31"])
	assert.Equal(t, 4.0, byIndex["A0000000A|2023-01-31"])
	assert.NotContains(t, byIndex, "E0000000E|2023-01-31")
	assert.NotContains(t, byIndex, "F0000000F|2023-01-31",
		"rows outside the index neither rank nor shift the ranks of members")

	RankOnDateByKey(p, "mcap", "mcap_rank_desc", false)
	assert.Equal(t, 1.0, indexMeasures(p, "mcap_rank_desc")["A0000000A|2023-01-31"])
}

func TestQuantileOnDateByKey(t *testing.T) {
	t.Parallel()

	p := &panel.Panel{KeyName: panel.KeyNameCusip}
	for i, key := range []string{"A", "B", "C", "D"} {
		p.Rows = append(p.Rows, row(key, "2023-01-31", map[string]float64{"value": float64(i)}))
	}

	require.NoError(t, QuantileOnDateByKey(p, "value", "bucket", 2))

	byIndex := indexMeasures(p, "bucket")
	assert.Equal(t, 1.0, byIndex["A|2023-01-31"])
	assert.Equal(t, 1.0, byIndex["B|2023-01-31"])
	assert.Equal(t, 2.0, byIndex["C|2023-01-31"])
	assert.Equal(t, 2.0, byIndex["D|2023-01-31"])

	assert.ErrorIs(t, QuantileOnDateByKey(p, "value", "bucket", 0), ErrBadArgument)
}

func TestMeanCenterAndStandardize(t *testing.T) {
	t.Parallel()

	p := &panel.Panel{KeyName: panel.KeyNameCusip, Rows: []panel.Row{
		row("A", "2023-01-31", map[string]float64{"value": 1}),
		row("B", "2023-01-31", map[string]float64{"value": 2}),
		row("C", "2023-01-31", map[string]float64{"value": 3}),
	}}

	MeanCenterOnDate(p, "value", "centered")
	centered := indexMeasures(p, "centered")
	assert.Equal(t, -1.0, centered["A|2023-01-31"])
	assert.Equal(t, 0.0, centered["B|2023-01-31"])
	assert.Equal(t, 1.0, centered["C|2023-01-31"])

	StandardizeOnDate(p, "value", "zscore")
	zscores := indexMeasures(p, "zscore")
	assert.InDelta(t, -1.0, zscores["A|2023-01-31"], 1e-9)
	assert.InDelta(t, 0.0, zscores["B|2023-01-31"], 1e-9)
	assert.InDelta(t, 1.0, zscores["C|2023-01-31"], 1e-9)
}

func TestCrossSectionalTransformsSkipOutOfIndexRows(t *testing.T) {
	t.Parallel()

	newPanel := func() *panel.Panel {
		return &panel.Panel{KeyName: panel.KeyNameCusip, Rows: []panel.Row{
			row("A", "2023-01-31", map[string]float64{"value": 1}),
			row("B", "2023-01-31", map[string]float64{"value": 3}),
			row("X", "2023-01-31", map[string]float64{"value": 100, panel.MeasureInIndex: 0}),
			row("Y", "2023-01-31", map[string]float64{panel.MeasureInIndex: 0}),
		}}
	}

	p := newPanel()
	MeanCenterOnDate(p, "value", "centered")
	centered := indexMeasures(p, "centered")
	assert.Equal(t, -1.0, centered["A|2023-01-31"], "the mean comes from index members only")
	assert.Equal(t, 1.0, centered["B|2023-01-31"])
	assert.NotContains(t, centered, "X|2023-01-31")

	p = newPanel()
	StandardizeOnDate(p, "value", "zscore")
	assert.NotContains(t, indexMeasures(p, "zscore"), "X|2023-01-31")

	p = newPanel()
	require.NoError(t, QuantileOnDateByKey(p, "value", "bucket", 2))
	buckets := indexMeasures(p, "bucket")
	assert.Equal(t, 1.0, buckets["A|2023-01-31"])
	assert.Equal(t, 2.0, buckets["B|2023-01-31"])
	assert.NotContains(t, buckets, "X|2023-01-31")

	p = newPanel()
	InterpolateMissingWithMean(p, "value")
	filled := indexMeasures(p, "value")
	assert.NotContains(t, filled, "Y|2023-01-31", "out-of-index rows are not interpolated")
}

func TestStandardizeSkipsZeroDeviation(t *testing.T) {
	t.Parallel()

	p := &panel.Panel{KeyName: panel.KeyNameCusip, Rows: []panel.Row{
		row("A", "2023-01-31", map[string]float64{"value": 5}),
		row("B", "2023-01-31", map[string]float64{"value": 5}),
	}}

	StandardizeOnDate(p, "value", "zscore")
	assert.Empty(t, indexMeasures(p, "zscore"))
}

func TestInterpolateMissingWithMean(t *testing.T) {
	t.Parallel()

	p := &panel.Panel{KeyName: panel.KeyNameCusip, Rows: []panel.Row{
		row("A", "2023-01-31", map[string]float64{"value": 10}),
		row("B", "2023-01-31", map[string]float64{"value": 20}),
		row("C", "2023-01-31", nil),
		row("C", "2023-02-28", nil),
	}}

	InterpolateMissingWithMean(p, "value")

	byIndex := indexMeasures(p, "value")
	assert.Equal(t, 15.0, byIndex["C|2023-01-31"])
	assert.Equal(t, 10.0, byIndex["A|2023-01-31"])
	// No observations in February at all, nothing to interpolate from.
	assert.NotContains(t, byIndex, "C|2023-02-28")
}

func TestTemporalSplit(t *testing.T) {
	t.Parallel()

	p := &panel.Panel{KeyName: panel.KeyNameCusip, Rows: []panel.Row{
		row("A", "2023-01-31", nil),
		row("A", "2023-02-28", nil),
		row("A", "2023-03-31", nil),
	}}

	before, after := TemporalSplit(p, date("2023-02-28"))
	require.Len(t, before.Rows, 1)
	require.Len(t, after.Rows, 2)
	assert.Equal(t, date("2023-01-31"), before.Rows[0].Date)
	assert.Equal(t, date("2023-02-28"), after.Rows[0].Date)
	assert.Equal(t, panel.KeyNameCusip, before.KeyName)
}

func indexMeasures(p *panel.Panel, measure string) map[string]float64 {
	out := map[string]float64{}
	for _, r := range p.Rows {
		if value, ok := r.Measures[measure]; ok {
			out[r.Key+"|"+r.Date.Format("2006-01-02")] = value
		}
	}
	return out
}
