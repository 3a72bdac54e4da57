// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package panel implements the stable representation returned by every
// data-source module: a long-format table of securities indexed by key name,
// key and date, with string dimensions and numeric measures attached.
package panel

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Barclays/research-data-science/internal/keys"
)

const (
	// KeyNameCusip indexes a panel by 9-character CUSIP.
	KeyNameCusip = "cusip"
	// KeyNameSedol indexes a panel by 7-character SEDOL.
	KeyNameSedol = "sedol"

	// MeasureInIndex marks rows that belong to the requested universe, as
	// opposed to rows carried only to complete a feature computation.
	MeasureInIndex = "in_index"
)

var (
	// ErrUnsupportedKeyName reports a panel indexed by an unknown key type.
	ErrUnsupportedKeyName = errors.New("unsupported security key name")
	// ErrNotValid reports a panel that violates the index invariants.
	ErrNotValid = errors.New("panel not valid")
)

// abbrevLen is the number of identifier characters each vendor key keeps
// once the check digit is dropped.
var abbrevLen = map[string]int{
	KeyNameCusip: 8,
	KeyNameSedol: 6,
}

// Row is a single (security, date) observation with its attached values.
type Row struct {
	Key        string             `json:"key"`
	Date       time.Time          `json:"date"`
	Dimensions map[string]string  `json:"dimensions,omitempty"`
	Measures   map[string]float64 `json:"measures,omitempty"`
}

// Panel is a long-format dataset of securities over time. Every row is
// identified by the panel-level KeyName plus the row's Key and Date.
type Panel struct {
	KeyName string `json:"keyName"`
	Rows    []Row  `json:"rows"`
}

// New builds a security panel as the cross product of the given keys and the
// date grid between start and end at the given frequency. Every row carries
// the in_index marker measure.
func New(keyName string, securityKeys []string, start, end time.Time, freq Frequency) (*Panel, error) {
	if _, ok := abbrevLen[keyName]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKeyName, keyName)
	}

	dates, err := DateGrid(start, end, freq)
	if err != nil {
		return nil, err
	}

	p := &Panel{
		KeyName: keyName,
		Rows:    make([]Row, 0, len(securityKeys)*len(dates)),
	}
	for _, key := range securityKeys {
		key = keys.CleanString(key)
		for _, date := range dates {
			p.Rows = append(p.Rows, Row{
				Key:      key,
				Date:     date,
				Measures: map[string]float64{MeasureInIndex: 1},
			})
		}
	}
	return p, nil
}

// Validate checks the panel index invariants: a supported key name, no
// empty keys, no zero dates and no duplicated (key, date) pairs.
func (p *Panel) Validate() error {
	if _, ok := abbrevLen[p.KeyName]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedKeyName, p.KeyName)
	}

	seen := make(map[string]struct{}, len(p.Rows))
	for i, row := range p.Rows {
		if row.Key == "" {
			return fmt.Errorf("%w: row %d has an empty key", ErrNotValid, i)
		}
		if row.Date.IsZero() {
			return fmt.Errorf("%w: row %d has a zero date", ErrNotValid, i)
		}
		index := row.Key + "|" + row.Date.Format("2006-01-02")
		if _, ok := seen[index]; ok {
			return fmt.Errorf("%w: duplicated index %s %s", ErrNotValid, row.Key, row.Date.Format("2006-01-02"))
		}
		seen[index] = struct{}{}
	}
	return nil
}

// Keys returns the distinct security keys in the panel, sorted. With
// abbreviated set, keys are cut to the vendor length without check digit:
// 8 characters for CUSIPs and 6 for SEDOLs.
func (p *Panel) Keys(abbreviated bool) []string {
	cut := len(p.KeyName)
	if n, ok := abbrevLen[p.KeyName]; ok {
		cut = n
	}

	set := make(map[string]struct{})
	for _, row := range p.Rows {
		key := row.Key
		if abbreviated && len(key) > cut {
			key = key[:cut]
		}
		set[key] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// DateRange returns the panel's minimum and maximum dates widened by delta
// on each side, so that data-layer requests cover lagged lookups.
func (p *Panel) DateRange(delta time.Duration) (time.Time, time.Time) {
	if len(p.Rows) == 0 {
		return time.Time{}, time.Time{}
	}

	min, max := p.Rows[0].Date, p.Rows[0].Date
	for _, row := range p.Rows[1:] {
		if row.Date.Before(min) {
			min = row.Date
		}
		if row.Date.After(max) {
			max = row.Date
		}
	}
	return min.Add(-delta), max.Add(delta)
}

// SortByDate orders rows by date, then key, in place.
func (p *Panel) SortByDate() {
	sort.SliceStable(p.Rows, func(i, j int) bool {
		if !p.Rows[i].Date.Equal(p.Rows[j].Date) {
			return p.Rows[i].Date.Before(p.Rows[j].Date)
		}
		return p.Rows[i].Key < p.Rows[j].Key
	})
}

// HasMeasure reports whether any row carries the named measure.
func (p *Panel) HasMeasure(name string) bool {
	for _, row := range p.Rows {
		if _, ok := row.Measures[name]; ok {
			return true
		}
	}
	return false
}

// DropMeasure removes the named measure from every row.
func (p *Panel) DropMeasure(name string) {
	for _, row := range p.Rows {
		delete(row.Measures, name)
	}
}

// SetMeasure attaches value under name on the row at index i, allocating the
// measures map when needed.
func (p *Panel) SetMeasure(i int, name string, value float64) {
	if p.Rows[i].Measures == nil {
		p.Rows[i].Measures = make(map[string]float64, 1)
	}
	p.Rows[i].Measures[name] = value
}

// SetDimension attaches value under name on the row at index i, allocating
// the dimensions map when needed.
func (p *Panel) SetDimension(i int, name string, value string) {
	if p.Rows[i].Dimensions == nil {
		p.Rows[i].Dimensions = make(map[string]string, 1)
	}
	p.Rows[i].Dimensions[name] = value
}

// abbrevKey cuts a full key to the panel's vendor length.
func (p *Panel) abbrevKey(key string) string {
	if n, ok := abbrevLen[p.KeyName]; ok && len(key) > n {
		return key[:n]
	}
	return key
}
