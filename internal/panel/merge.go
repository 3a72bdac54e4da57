// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"context"
	"sort"
	"time"

	"github.com/Barclays/research-data-science/internal/logger"
)

// Observation is a single dated numeric value keyed by security.
type Observation struct {
	Key   string    `json:"key,omitempty"`
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// DimensionObservation is a single dated string value keyed by security.
type DimensionObservation struct {
	Key   string
	Date  time.Time
	Value string
}

// MergeOptions controls how observations are matched onto panel rows.
type MergeOptions struct {
	// ByDimension matches observations on the named dimension value of
	// each row instead of its security key, e.g. "gvkey" for fundamentals.
	ByDimension string
	// Abbreviated matches observation keys against panel keys cut to the
	// vendor length without check digit.
	Abbreviated bool
	// AllowExactMatch admits observations dated exactly on the row date.
	// When false only strictly earlier observations are used.
	AllowExactMatch bool
	// DateOnly ignores keys and matches on date alone, for economy-wide
	// series that apply to every security.
	DateOnly bool
}

type record[T any] struct {
	date  time.Time
	value T
}

// AsofMergeMeasure joins observations onto the panel as the measure name,
// carrying for each row the last observed value at or before the row date.
// An existing measure with the same name is dropped with a warning first.
func (p *Panel) AsofMergeMeasure(ctx context.Context, name string, observations []Observation, opts MergeOptions) {
	if p.HasMeasure(name) {
		logger.FromContext(ctx).Warn("overwriting existing measure", "measure", name)
		p.DropMeasure(name)
	}

	grouped := make(map[string][]record[float64], len(observations))
	for _, obs := range observations {
		key := obs.Key
		if opts.DateOnly {
			key = ""
		}
		grouped[key] = append(grouped[key], record[float64]{date: obs.Date, value: obs.Value})
	}

	mergeGrouped(p, grouped, opts, func(i int, value float64) {
		p.SetMeasure(i, name, value)
	})
}

// AsofMergeDimension joins observations onto the panel as the dimension
// name, with the same last-known-value semantics as AsofMergeMeasure.
func (p *Panel) AsofMergeDimension(ctx context.Context, name string, observations []DimensionObservation, opts MergeOptions) {
	for _, row := range p.Rows {
		if _, ok := row.Dimensions[name]; ok {
			logger.FromContext(ctx).Warn("overwriting existing dimension", "dimension", name)
			for _, r := range p.Rows {
				delete(r.Dimensions, name)
			}
			break
		}
	}

	grouped := make(map[string][]record[string], len(observations))
	for _, obs := range observations {
		key := obs.Key
		if opts.DateOnly {
			key = ""
		}
		grouped[key] = append(grouped[key], record[string]{date: obs.Date, value: obs.Value})
	}

	mergeGrouped(p, grouped, opts, func(i int, value string) {
		p.SetDimension(i, name, value)
	})
}

func mergeGrouped[T any](p *Panel, grouped map[string][]record[T], opts MergeOptions, set func(i int, value T)) {
	for key := range grouped {
		sort.SliceStable(grouped[key], func(i, j int) bool {
			return grouped[key][i].date.Before(grouped[key][j].date)
		})
	}

	for i, row := range p.Rows {
		key := row.Key
		switch {
		case opts.DateOnly:
			key = ""
		case opts.ByDimension != "":
			key = row.Dimensions[opts.ByDimension]
		case opts.Abbreviated:
			key = p.abbrevKey(key)
		}

		records, ok := grouped[key]
		if !ok {
			continue
		}

		if value, ok := lastBefore(records, row.Date, opts.AllowExactMatch); ok {
			set(i, value)
		}
	}
}

// lastBefore returns the value of the latest record dated at or before
// cutoff. With exact set to false, records dated exactly on the cutoff are
// skipped.
func lastBefore[T any](records []record[T], cutoff time.Time, exact bool) (T, bool) {
	n := sort.Search(len(records), func(i int) bool {
		if exact {
			return records[i].date.After(cutoff)
		}
		return !records[i].date.Before(cutoff)
	})

	var zero T
	if n == 0 {
		return zero, false
	}
	return records[n-1].value, true
}
