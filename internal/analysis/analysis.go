// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package analysis implements panel transforms: per-security lags,
// cross-sectional ranks and scalings, and time-windowed aggregations.
//
// Transforms never look across the row index: lags group by security key and
// move along dates, cross-sectional operations group by date and look across
// keys. Rows missing the input measure are left untouched, and rows carried
// outside the index universe (in_index 0) are excluded from cross-sectional
// computations.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Barclays/research-data-science/internal/panel"
)

// ErrBadArgument reports an unusable transform parameter.
var ErrBadArgument = errors.New("bad analysis argument")

// LagOnDateByKey writes measure shifted back by periods grid positions as
// out: each row receives the value its security had periods dates earlier.
func LagOnDateByKey(p *panel.Panel, measure, out string, periods int) error {
	if periods < 0 {
		return fmt.Errorf("%w: periods cannot be negative", ErrBadArgument)
	}

	for _, indexes := range rowsByKey(p) {
		sortByDate(p, indexes)
		for pos, i := range indexes {
			if pos < periods {
				continue
			}
			source := p.Rows[indexes[pos-periods]]
			if value, ok := source.Measures[measure]; ok {
				p.SetMeasure(i, out, value)
			}
		}
	}
	return nil
}

// LagByMonthOffset moves each observation of measure forward by months on
// the calendar and writes the moved values back as out with asof semantics:
// every row receives the last value whose moved date is at or before the row
// date. Unlike LagOnDateByKey it works on calendar time, so it stays correct
// on irregular date grids. Moved dates clamp to the target month end, so a
// January 31 observation lands on April 30 rather than spilling into May.
func LagByMonthOffset(p *panel.Panel, measure, out string, months int) error {
	if months < 0 {
		return fmt.Errorf("%w: months cannot be negative", ErrBadArgument)
	}

	type moved struct {
		date  time.Time
		value float64
	}
	for _, indexes := range rowsByKey(p) {
		sortByDate(p, indexes)

		observations := make([]moved, 0, len(indexes))
		for _, i := range indexes {
			if value, ok := p.Rows[i].Measures[measure]; ok {
				observations = append(observations, moved{addMonthsClamped(p.Rows[i].Date, months), value})
			}
		}

		for _, i := range indexes {
			for pos := len(observations) - 1; pos >= 0; pos-- {
				if observations[pos].date.After(p.Rows[i].Date) {
					continue
				}
				p.SetMeasure(i, out, observations[pos].value)
				break
			}
		}
	}
	return nil
}

// addMonthsClamped adds months to t, clamping the day to the last day of
// the target month instead of rolling over into the next one.
func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// RankOnDateByKey writes the cross-sectional rank of measure on each date as
// out. Ranks start at 1 and ties receive their average rank. With ascending
// false the largest value ranks first.
func RankOnDateByKey(p *panel.Panel, measure, out string, ascending bool) {
	for _, indexes := range rowsByDate(p) {
		present := withMeasure(p, indexes, measure)
		sort.SliceStable(present, func(a, b int) bool {
			va := p.Rows[present[a]].Measures[measure]
			vb := p.Rows[present[b]].Measures[measure]
			if ascending {
				return va < vb
			}
			return va > vb
		})

		for start := 0; start < len(present); {
			end := start
			for end+1 < len(present) &&
				p.Rows[present[end+1]].Measures[measure] == p.Rows[present[start]].Measures[measure] {
				end++
			}
			rank := float64(start+1+end+1) / 2
			for pos := start; pos <= end; pos++ {
				p.SetMeasure(present[pos], out, rank)
			}
			start = end + 1
		}
	}
}

// QuantileOnDateByKey writes the cross-sectional quantile bucket of measure
// on each date as out. Buckets run from 1 for the smallest values to the
// given count for the largest.
func QuantileOnDateByKey(p *panel.Panel, measure, out string, buckets int) error {
	if buckets < 1 {
		return fmt.Errorf("%w: buckets must be positive", ErrBadArgument)
	}

	for _, indexes := range rowsByDate(p) {
		present := withMeasure(p, indexes, measure)
		sort.SliceStable(present, func(a, b int) bool {
			return p.Rows[present[a]].Measures[measure] < p.Rows[present[b]].Measures[measure]
		})

		for pos, i := range present {
			bucket := pos * buckets / len(present)
			p.SetMeasure(i, out, float64(bucket+1))
		}
	}
	return nil
}

// MeanCenterOnDate writes measure minus its cross-sectional mean on each
// date as out.
func MeanCenterOnDate(p *panel.Panel, measure, out string) {
	for _, indexes := range rowsByDate(p) {
		present := withMeasure(p, indexes, measure)
		mean, _ := meanStd(p, present, measure)
		for _, i := range present {
			p.SetMeasure(i, out, p.Rows[i].Measures[measure]-mean)
		}
	}
}

// StandardizeOnDate writes the cross-sectional z-score of measure on each
// date as out, using the sample standard deviation. Dates where the
// deviation is zero are left untouched.
func StandardizeOnDate(p *panel.Panel, measure, out string) {
	for _, indexes := range rowsByDate(p) {
		present := withMeasure(p, indexes, measure)
		mean, std := meanStd(p, present, measure)
		if std == 0 {
			continue
		}
		for _, i := range present {
			p.SetMeasure(i, out, (p.Rows[i].Measures[measure]-mean)/std)
		}
	}
}

// InterpolateMissingWithMean fills rows missing measure with its
// cross-sectional mean on the row date. Dates with no observations at all
// stay empty.
func InterpolateMissingWithMean(p *panel.Panel, measure string) {
	for _, indexes := range rowsByDate(p) {
		present := withMeasure(p, indexes, measure)
		if len(present) == 0 {
			continue
		}
		mean, _ := meanStd(p, present, measure)
		for _, i := range indexes {
			if !inIndex(p, i) {
				continue
			}
			if _, ok := p.Rows[i].Measures[measure]; !ok {
				p.SetMeasure(i, measure, mean)
			}
		}
	}
}

// TemporalSplit partitions the panel into rows strictly before the cutoff
// and rows at or after it. Row values are shared with the input panel.
func TemporalSplit(p *panel.Panel, cutoff time.Time) (before, after *panel.Panel) {
	before = &panel.Panel{KeyName: p.KeyName}
	after = &panel.Panel{KeyName: p.KeyName}
	for _, row := range p.Rows {
		if row.Date.Before(cutoff) {
			before.Rows = append(before.Rows, row)
			continue
		}
		after.Rows = append(after.Rows, row)
	}
	return before, after
}

func rowsByKey(p *panel.Panel) map[string][]int {
	grouped := map[string][]int{}
	for i, row := range p.Rows {
		grouped[row.Key] = append(grouped[row.Key], i)
	}
	return grouped
}

func rowsByDate(p *panel.Panel) map[time.Time][]int {
	grouped := map[time.Time][]int{}
	for i, row := range p.Rows {
		grouped[row.Date] = append(grouped[row.Date], i)
	}
	return grouped
}

func sortByDate(p *panel.Panel, indexes []int) {
	sort.SliceStable(indexes, func(a, b int) bool {
		return p.Rows[indexes[a]].Date.Before(p.Rows[indexes[b]].Date)
	})
}

func withMeasure(p *panel.Panel, indexes []int, measure string) []int {
	present := make([]int, 0, len(indexes))
	for _, i := range indexes {
		if !inIndex(p, i) {
			continue
		}
		if _, ok := p.Rows[i].Measures[measure]; ok {
			present = append(present, i)
		}
	}
	return present
}

// inIndex reports whether a row takes part in cross-sectional computations.
// Membership panels carry in_index 0 on dates the security was outside the
// universe; rows without the measure count as members.
func inIndex(p *panel.Panel, i int) bool {
	value, ok := p.Rows[i].Measures[panel.MeasureInIndex]
	return !ok || value != 0
}

func meanStd(p *panel.Panel, indexes []int, measure string) (mean, std float64) {
	if len(indexes) == 0 {
		return 0, 0
	}

	for _, i := range indexes {
		mean += p.Rows[i].Measures[measure]
	}
	mean /= float64(len(indexes))

	if len(indexes) < 2 {
		return mean, 0
	}
	var sumSquares float64
	for _, i := range indexes {
		diff := p.Rows[i].Measures[measure] - mean
		sumSquares += diff * diff
	}
	return mean, math.Sqrt(sumSquares / float64(len(indexes)-1))
}
