// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package qad

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Barclays/research-data-science/internal/keys"
	"github.com/Barclays/research-data-science/internal/panel"
)

// SP500Panel builds a CUSIP-indexed panel of S&P 500 membership between
// start and end at the given frequency.
func (q *QAD) SP500Panel(ctx context.Context, start, end time.Time, freq panel.Frequency) (*panel.Panel, error) {
	return q.spPanel(ctx, "500", start, end, freq)
}

// SP1500Panel builds a CUSIP-indexed panel of S&P 1500 membership between
// start and end at the given frequency.
func (q *QAD) SP1500Panel(ctx context.Context, start, end time.Time, freq panel.Frequency) (*panel.Panel, error) {
	return q.spPanel(ctx, "1500", start, end, freq)
}

func (q *QAD) spPanel(ctx context.Context, indexCode string, start, end time.Time, freq panel.Frequency) (*panel.Panel, error) {
	intervals, err := q.store.SPConstituents(ctx, indexCode, start, end)
	if err != nil {
		return nil, err
	}
	return membershipPanel(panel.KeyNameCusip, intervals, keys.CusipAbbrevToFull, start, end, freq)
}

// DatastreamIndexPanel builds a SEDOL-indexed membership panel for a
// Datastream index list, given either its numeric code or its exact
// mnemonic or name.
func (q *QAD) DatastreamIndexPanel(ctx context.Context, index string, start, end time.Time, freq panel.Frequency) (*panel.Panel, error) {
	code, err := strconv.Atoi(index)
	if err != nil {
		code, err = q.store.DatastreamIndexCode(ctx, index)
		if err != nil {
			return nil, err
		}
	}

	intervals, err := q.store.DatastreamConstituents(ctx, code, start, end)
	if err != nil {
		return nil, err
	}
	return membershipPanel(panel.KeyNameSedol, intervals, keys.SedolAbbrevToFull, start, end, freq)
}

// SearchIndexes lists the Datastream index lists matching the query.
func (q *QAD) SearchIndexes(ctx context.Context, match string) ([]DatastreamIndex, error) {
	return q.store.DatastreamIndexSearch(ctx, match)
}

// membershipPanel expands membership intervals onto a date grid. Every
// security that was a member at any point gets a row on every grid date,
// with in_index marking whether it was inside the universe on that date;
// the carried out-of-index rows let cross-sectional transforms see a
// survivorship-free history. Vendor keys are expanded to their full form
// with check digit.
func membershipPanel(
	keyName string,
	intervals []ConstituentInterval,
	expand func(string) (string, error),
	start, end time.Time,
	freq panel.Frequency,
) (*panel.Panel, error) {
	dates, err := panel.DateGrid(start, end, freq)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(intervals))
	byKey := map[string][]ConstituentInterval{}
	for _, interval := range intervals {
		key, err := expand(interval.Key)
		if err != nil {
			return nil, fmt.Errorf("error expanding membership key %q: %w", interval.Key, err)
		}
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], interval)
	}

	p := &panel.Panel{KeyName: keyName}
	for _, key := range order {
		for _, date := range dates {
			var member float64
			for _, interval := range byKey[key] {
				if date.Before(interval.From) {
					continue
				}
				if !interval.Thru.IsZero() && date.After(interval.Thru) {
					continue
				}
				member = 1
				break
			}
			p.Rows = append(p.Rows, panel.Row{
				Key:      key,
				Date:     date,
				Measures: map[string]float64{panel.MeasureInIndex: member},
			})
		}
	}

	p.SortByDate()
	return p, p.Validate()
}
