// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package fred

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Barclays/research-data-science/internal/config"
	"github.com/Barclays/research-data-science/internal/panel"
	"github.com/Barclays/research-data-science/internal/secrets"
	"github.com/Barclays/research-data-science/internal/source"
)

// Feature names the FRED module can attach to a panel.
const (
	FeatureGDP           = "gdp"
	FeatureInitialClaims = "initial_claims"
)

const (
	seriesGDP           = "GDP"
	seriesInitialClaims = "ICSA"
)

// ICSA periods before ALFRED coverage began all carry this constant as
// their realtime start, understating the publication lag. The weekly
// claims report actually comes out the following Thursday, five days
// after the period end.
var icsaRealtimeCutoff = time.Date(2009, time.May, 28, 0, 0, 0, 0, time.UTC)

const icsaPublicationLag = 5 * 24 * time.Hour

// observationLookback widens the requested range so the first panel dates
// can still pick up the previous period's release.
const observationLookback = 400 * 24 * time.Hour

type client interface {
	Observations(ctx context.Context, seriesID string, start, end time.Time) ([]ReleaseObservation, error)
	Search(ctx context.Context, text string) ([]Series, error)
}

// Fred is the stable API layer over the FRED web service. Its features are
// economy wide, so they merge onto panels by date alone.
type Fred struct {
	client client
}

// New builds the FRED module from its environment configuration.
func New(cfg Config, provider secrets.Provider) (*Fred, error) {
	fredClient, err := NewClient(cfg, provider)
	if err != nil {
		return nil, err
	}
	return &Fred{client: fredClient}, nil
}

func (f *Fred) Name() string {
	return config.ModuleFred
}

// Close is a no-op, the module holds no connections.
func (f *Fred) Close() {}

func (f *Fred) Features() []string {
	return []string{FeatureGDP, FeatureInitialClaims}
}

func (f *Fred) ApplyFeature(ctx context.Context, p *panel.Panel, feature string) error {
	switch feature {
	case FeatureGDP:
		return f.AddSeries(ctx, p, seriesGDP, FeatureGDP)
	case FeatureInitialClaims:
		return f.AddSeries(ctx, p, seriesInitialClaims, FeatureInitialClaims)
	}
	return fmt.Errorf("%w: %q", source.ErrUnknownFeature, feature)
}

// AddSeries attaches a FRED series to the panel as measure, point in time:
// each row carries the latest value that had actually been published by the
// row date, using the first release of each period.
func (f *Fred) AddSeries(ctx context.Context, p *panel.Panel, seriesID, measure string) error {
	start, end := p.DateRange(observationLookback)
	releases, err := f.client.Observations(ctx, seriesID, start, end)
	if err != nil {
		return err
	}

	observations := pointInTime(seriesID, releases)
	p.AsofMergeMeasure(ctx, measure, observations, panel.MergeOptions{DateOnly: true, AllowExactMatch: true})
	return nil
}

// SeriesObservations returns the point-in-time view of a series between
// start and end: one value per period, dated at its first publication.
func (f *Fred) SeriesObservations(ctx context.Context, seriesID string, start, end time.Time) ([]panel.Observation, error) {
	releases, err := f.client.Observations(ctx, seriesID, start, end)
	if err != nil {
		return nil, err
	}
	return pointInTime(seriesID, releases), nil
}

// Search lists the FRED series matching the text.
func (f *Fred) Search(ctx context.Context, text string) ([]Series, error) {
	return f.client.Search(ctx, text)
}

// pointInTime reduces archived releases to one observation per period, the
// first release, dated at its publication so the asof merge cannot look
// ahead of what was known on each panel date.
func pointInTime(seriesID string, releases []ReleaseObservation) []panel.Observation {
	first := map[time.Time]ReleaseObservation{}
	for _, release := range releases {
		current, ok := first[release.Date]
		if !ok || release.RealtimeStart.Before(current.RealtimeStart) {
			first[release.Date] = release
		}
	}

	observations := make([]panel.Observation, 0, len(first))
	for _, release := range first {
		published := release.RealtimeStart
		if seriesID == seriesInitialClaims &&
			published.Equal(icsaRealtimeCutoff) && release.Date.Before(icsaRealtimeCutoff) {
			published = release.Date.Add(icsaPublicationLag)
		}
		observations = append(observations, panel.Observation{Date: published, Value: release.Value})
	}
	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date)
	})
	return observations
}
