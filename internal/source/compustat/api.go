// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package compustat

import (
	"context"
	"fmt"
	"time"

	"github.com/Barclays/research-data-science/internal/config"
	"github.com/Barclays/research-data-science/internal/database"
	"github.com/Barclays/research-data-science/internal/panel"
	"github.com/Barclays/research-data-science/internal/secrets"
	"github.com/Barclays/research-data-science/internal/source"
)

// Feature names the Compustat module can attach to a panel.
const (
	FeatureGVKey            = "gvkey"
	FeatureSales            = "sales"
	FeatureAssets           = "assets"
	FeatureEBITDA           = "ebitda"
	FeatureNetIncome        = "net_income"
	FeatureCapex            = "capex"
	FeatureTotalRevenue     = "total_revenue"
	FeatureRAndD            = "r_and_d"
	FeaturePreferredStock   = "preferred_stock"
	FeatureQuarterlyRevenue = "quarterly_revenue"
	FeatureIPODate          = "ipo_date"
	FeatureCIK              = "cik"
	FeatureGICCode          = "gic_code"
	FeatureGICSector        = "gic_sector"
)

// gicSectors names the GIC sector encoded in the leading two digits of an
// industry code.
var gicSectors = map[string]string{
	"10": "Energy",
	"15": "Materials",
	"20": "Industrials",
	"25": "Consumer Discretionary",
	"30": "Consumer Staples",
	"35": "Health Care",
	"40": "Financials",
	"45": "Information Technology",
	"50": "Communication Services",
	"55": "Utilities",
	"60": "Real Estate",
}

// fundamentalsLookback widens the data-layer date range so that month-end
// rows can carry the latest reported fiscal period, which for annual data
// can be over a year old.
const fundamentalsLookback = 400 * 24 * time.Hour

// fundamentalsMerge joins gvkey-keyed observations through the panel's
// gvkey crosswalk dimension.
var fundamentalsMerge = panel.MergeOptions{ByDimension: FeatureGVKey, AllowExactMatch: true}

type store interface {
	GVKeys(ctx context.Context, cusips []string) ([]panel.DimensionObservation, error)
	AnnualFundamental(ctx context.Context, gvkeys []string, item string, start, end time.Time) ([]panel.Observation, error)
	QuarterlyFundamental(ctx context.Context, gvkeys []string, item string, start, end time.Time) ([]panel.Observation, error)
	IPODates(ctx context.Context, gvkeys []string) ([]panel.DimensionObservation, error)
	CIKs(ctx context.Context, gvkeys []string) ([]panel.DimensionObservation, error)
	GICCodes(ctx context.Context, gvkeys []string) ([]panel.DimensionObservation, error)
	Close()
}

// Compustat is the stable API layer over the Compustat fundamentals
// database. It only serves CUSIP-indexed panels, the gvkey crosswalk has no
// SEDOL leg.
type Compustat struct {
	store store
}

// New connects to the Compustat database and returns the module.
func New(ctx context.Context, cfg Config, provider secrets.Provider, dateFormat string) (*Compustat, error) {
	connConfig, err := cfg.ConnConfig(provider)
	if err != nil {
		return nil, err
	}

	pool, err := database.Connect(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("error connecting to compustat: %w", err)
	}
	return &Compustat{store: NewStore(pool, dateFormat)}, nil
}

// FromStore builds the module over an existing store.
func FromStore(s *Store) *Compustat {
	return &Compustat{store: s}
}

func (c *Compustat) Name() string {
	return config.ModuleCompustat
}

func (c *Compustat) Close() {
	c.store.Close()
}

func (c *Compustat) Features() []string {
	return []string{
		FeatureGVKey,
		FeatureSales,
		FeatureAssets,
		FeatureEBITDA,
		FeatureNetIncome,
		FeatureCapex,
		FeatureTotalRevenue,
		FeatureRAndD,
		FeaturePreferredStock,
		FeatureQuarterlyRevenue,
		FeatureIPODate,
		FeatureCIK,
		FeatureGICCode,
		FeatureGICSector,
	}
}

// ApplyFeature attaches the named feature to the panel. Fundamentals
// features attach the gvkey crosswalk first when the panel does not carry
// it yet.
func (c *Compustat) ApplyFeature(ctx context.Context, p *panel.Panel, feature string) error {
	if p.KeyName != panel.KeyNameCusip {
		return fmt.Errorf("%w: compustat requires a cusip-indexed panel, got %q",
			panel.ErrUnsupportedKeyName, p.KeyName)
	}

	if feature == FeatureGVKey {
		return c.addGVKeys(ctx, p)
	}

	if err := c.ensureGVKeys(ctx, p); err != nil {
		return err
	}

	if item, ok := annualItems[feature]; ok {
		return c.addFundamental(ctx, p, feature, item, c.store.AnnualFundamental)
	}
	if item, ok := quarterlyItems[feature]; ok {
		return c.addFundamental(ctx, p, feature, item, c.store.QuarterlyFundamental)
	}

	switch feature {
	case FeatureIPODate:
		return c.addCompanyDimension(ctx, p, feature, c.store.IPODates)
	case FeatureCIK:
		return c.addCompanyDimension(ctx, p, feature, c.store.CIKs)
	case FeatureGICCode, FeatureGICSector:
		return c.addGICCodes(ctx, p)
	}
	return fmt.Errorf("%w: %q", source.ErrUnknownFeature, feature)
}

func (c *Compustat) addGVKeys(ctx context.Context, p *panel.Panel) error {
	observations, err := c.store.GVKeys(ctx, p.Keys(false))
	if err != nil {
		return err
	}

	start, _ := p.DateRange(0)
	for i := range observations {
		observations[i].Date = start
	}
	p.AsofMergeDimension(ctx, FeatureGVKey, observations, panel.MergeOptions{AllowExactMatch: true})
	return nil
}

func (c *Compustat) ensureGVKeys(ctx context.Context, p *panel.Panel) error {
	for _, row := range p.Rows {
		if _, ok := row.Dimensions[FeatureGVKey]; ok {
			return nil
		}
	}
	return c.addGVKeys(ctx, p)
}

func (c *Compustat) addFundamental(
	ctx context.Context,
	p *panel.Panel,
	measure, item string,
	fetch func(ctx context.Context, gvkeys []string, item string, start, end time.Time) ([]panel.Observation, error),
) error {
	start, end := p.DateRange(fundamentalsLookback)
	observations, err := fetch(ctx, gvkeys(p), item, start, end)
	if err != nil {
		return err
	}
	p.AsofMergeMeasure(ctx, measure, observations, fundamentalsMerge)
	return nil
}

// addGICCodes attaches the GIC industry code and derives the sector name
// from its leading two digits.
func (c *Compustat) addGICCodes(ctx context.Context, p *panel.Panel) error {
	if err := c.addCompanyDimension(ctx, p, FeatureGICCode, c.store.GICCodes); err != nil {
		return err
	}

	for i, row := range p.Rows {
		code := row.Dimensions[FeatureGICCode]
		if len(code) < 2 {
			continue
		}
		if sector, ok := gicSectors[code[:2]]; ok {
			p.SetDimension(i, FeatureGICSector, sector)
		}
	}
	return nil
}

func (c *Compustat) addCompanyDimension(
	ctx context.Context,
	p *panel.Panel,
	dimension string,
	fetch func(ctx context.Context, gvkeys []string) ([]panel.DimensionObservation, error),
) error {
	observations, err := fetch(ctx, gvkeys(p))
	if err != nil {
		return err
	}

	start, _ := p.DateRange(0)
	for i := range observations {
		observations[i].Date = start
	}
	p.AsofMergeDimension(ctx, dimension, observations, fundamentalsMerge)
	return nil
}

// gvkeys lists the distinct gvkeys attached to the panel, in row order.
func gvkeys(p *panel.Panel) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, row := range p.Rows {
		key, ok := row.Dimensions[FeatureGVKey]
		if !ok || key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
