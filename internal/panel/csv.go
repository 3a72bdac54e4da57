// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

const csvDateLayout = "2006-01-02"

// WriteCSV writes the panel in long format: the key column named after the
// panel key name, a date column, then dimensions and measures in sorted
// column order. Values a row does not carry are left empty.
func (p *Panel) WriteCSV(w io.Writer) error {
	dimensions, measures := p.columnNames()

	header := append([]string{p.KeyName, "date"}, dimensions...)
	header = append(header, measures...)

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	line := make([]string, len(header))
	for _, row := range p.Rows {
		line[0] = row.Key
		line[1] = row.Date.Format(csvDateLayout)
		for i, name := range dimensions {
			line[2+i] = row.Dimensions[name]
		}
		for i, name := range measures {
			line[2+len(dimensions)+i] = ""
			if value, ok := row.Measures[name]; ok {
				line[2+len(dimensions)+i] = strconv.FormatFloat(value, 'g', -1, 64)
			}
		}
		if err := writer.Write(line); err != nil {
			return fmt.Errorf("error writing csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a long-format panel written by WriteCSV. Columns listed in
// dimensions stay strings even when they look numeric, which keeps
// identifiers like gvkeys from losing their leading zeros; every other
// column is parsed as a measure.
func ReadCSV(r io.Reader, keyName string, dimensions []string) (*Panel, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading csv header: %w", err)
	}
	if len(header) < 2 || header[0] != keyName || header[1] != "date" {
		return nil, fmt.Errorf("%w: header must start with %q and \"date\"", ErrNotValid, keyName)
	}

	isDimension := make(map[string]bool, len(dimensions))
	for _, name := range dimensions {
		isDimension[name] = true
	}

	p := &Panel{KeyName: keyName}
	for {
		line, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading csv row: %w", err)
		}

		date, err := time.Parse(csvDateLayout, line[1])
		if err != nil {
			return nil, fmt.Errorf("error parsing date %q: %w", line[1], err)
		}

		row := Row{Key: line[0], Date: date}
		for i, cell := range line[2:] {
			name := header[2+i]
			switch {
			case isDimension[name]:
				if cell != "" {
					if row.Dimensions == nil {
						row.Dimensions = map[string]string{}
					}
					row.Dimensions[name] = cell
				}
			case cell != "":
				value, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("error parsing measure %q: %w", name, err)
				}
				if row.Measures == nil {
					row.Measures = map[string]float64{}
				}
				row.Measures[name] = value
			}
		}
		p.Rows = append(p.Rows, row)
	}

	return p, nil
}

func (p *Panel) columnNames() (dimensions, measures []string) {
	dimensionSet := map[string]struct{}{}
	measureSet := map[string]struct{}{}
	for _, row := range p.Rows {
		for name := range row.Dimensions {
			dimensionSet[name] = struct{}{}
		}
		for name := range row.Measures {
			measureSet[name] = struct{}{}
		}
	}

	for name := range dimensionSet {
		dimensions = append(dimensions, name)
	}
	for name := range measureSet {
		measures = append(measures, name)
	}
	sort.Strings(dimensions)
	sort.Strings(measures)
	return dimensions, measures
}
