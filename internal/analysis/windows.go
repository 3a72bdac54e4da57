// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/Barclays/research-data-science/internal/exec"
	"github.com/Barclays/research-data-science/internal/panel"
)

// Window bounds a time-windowed aggregation around each row date. Past and
// Future extend the window backwards and forwards; both ends are inclusive.
// A Future greater than zero makes the result forward-looking, which is
// deliberate for building prediction targets.
type Window struct {
	Past   time.Duration
	Future time.Duration
}

// ApplyTimeWindowed writes as out, for every row, fn applied to the values
// of measure its security carries inside the row's window. Securities are
// processed as independent tasks on the given backend. Rows whose window
// holds no observations are left untouched.
func ApplyTimeWindowed(
	ctx context.Context,
	backend exec.Backend,
	p *panel.Panel,
	measure, out string,
	window Window,
	fn func(values []float64) float64,
) error {
	if window.Past < 0 || window.Future < 0 {
		return fmt.Errorf("%w: window bounds cannot be negative", ErrBadArgument)
	}

	tasks := make([]exec.Task, 0)
	for _, indexes := range rowsByKey(p) {
		sortByDate(p, indexes)
		tasks = append(tasks, func(context.Context) error {
			applyWindowToKey(p, indexes, measure, out, window, fn)
			return nil
		})
	}
	return backend.Run(ctx, tasks)
}

func applyWindowToKey(p *panel.Panel, indexes []int, measure, out string, window Window, fn func([]float64) float64) {
	for _, i := range indexes {
		from := p.Rows[i].Date.Add(-window.Past)
		to := p.Rows[i].Date.Add(window.Future)

		values := make([]float64, 0, len(indexes))
		for _, j := range indexes {
			if p.Rows[j].Date.Before(from) || p.Rows[j].Date.After(to) {
				continue
			}
			if value, ok := p.Rows[j].Measures[measure]; ok {
				values = append(values, value)
			}
		}
		if len(values) > 0 {
			p.SetMeasure(i, out, fn(values))
		}
	}
}

// Mean aggregates a window by arithmetic mean.
func Mean(values []float64) float64 {
	var sum float64
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}

// Max aggregates a window by maximum.
func Max(values []float64) float64 {
	max := values[0]
	for _, value := range values[1:] {
		if value > max {
			max = value
		}
	}
	return max
}
