// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"errors"
	"fmt"
	"time"
)

// Frequency selects the date-grid spacing of a security panel.
type Frequency string

const (
	// Daily generates every calendar day.
	Daily Frequency = "D"
	// MonthEnd generates the last calendar day of each month.
	MonthEnd Frequency = "M"
	// BusinessMonthEnd generates the last weekday of each month.
	BusinessMonthEnd Frequency = "BM"
	// QuarterEnd generates the last calendar day of each quarter.
	QuarterEnd Frequency = "Q"
)

// ErrBadDateRange reports an unusable date range or frequency.
var ErrBadDateRange = errors.New("bad date range")

// DateGrid enumerates the grid dates between start and end inclusive at the
// given frequency. Dates are normalized to midnight UTC.
func DateGrid(start, end time.Time, freq Frequency) ([]time.Time, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s",
			ErrBadDateRange, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	start = midnightUTC(start)
	end = midnightUTC(end)

	var dates []time.Time
	switch freq {
	case Daily:
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
	case MonthEnd:
		for d := endOfMonth(start); !d.After(end); d = endOfMonth(d.AddDate(0, 0, 1)) {
			dates = append(dates, d)
		}
	case BusinessMonthEnd:
		for d := endOfMonth(start); !d.After(end); d = endOfMonth(d.AddDate(0, 0, 1)) {
			// A month end on a weekend rolls back; skip it when that lands
			// before the requested range.
			if weekday := lastWeekday(d); !weekday.Before(start) {
				dates = append(dates, weekday)
			}
		}
	case QuarterEnd:
		for d := endOfQuarter(start); !d.After(end); d = endOfQuarter(d.AddDate(0, 0, 1)) {
			dates = append(dates, d)
		}
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrBadDateRange, freq)
	}
	return dates, nil
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}

func endOfQuarter(t time.Time) time.Time {
	quarterEndMonth := ((int(t.Month())-1)/3)*3 + 3
	return time.Date(t.Year(), time.Month(quarterEndMonth), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}

func lastWeekday(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
