// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package registry wires the enabled data-source modules together and
// dispatches panel features to the module that serves them.
package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Barclays/research-data-science/internal/config"
	"github.com/Barclays/research-data-science/internal/exec"
	"github.com/Barclays/research-data-science/internal/logger"
	"github.com/Barclays/research-data-science/internal/panel"
	"github.com/Barclays/research-data-science/internal/secrets"
	"github.com/Barclays/research-data-science/internal/source"
	"github.com/Barclays/research-data-science/internal/source/compustat"
	"github.com/Barclays/research-data-science/internal/source/fred"
	"github.com/Barclays/research-data-science/internal/source/qad"
)

// NotEnabledError reports a request for a module that is disabled in the
// registry configuration.
type NotEnabledError struct {
	Module string
}

func (e NotEnabledError) Error() string {
	return fmt.Sprintf("module %q is not enabled", e.Module)
}

// featureCatalog maps every known feature to the module that serves it,
// including features of disabled modules, so requests for those can be
// answered with NotEnabledError instead of an unknown-feature error.
var featureCatalog = map[string]string{}

func init() {
	for _, feature := range []string{
		qad.FeatureClosingPrice, qad.FeatureClosingPriceUSD, qad.FeatureSharePriceCurrency,
		qad.FeatureMarketCap, qad.FeatureConsolidatedShareCount, qad.FeatureTotalReturnIndex,
		qad.FeatureReturns, qad.FeatureTicker, qad.FeatureIssuerName, qad.FeatureInfoCode,
		qad.FeatureDividendsPerShare, qad.FeatureDividendYield,
	} {
		featureCatalog[feature] = config.ModuleQAD
	}
	for _, feature := range []string{
		compustat.FeatureGVKey, compustat.FeatureSales, compustat.FeatureAssets,
		compustat.FeatureEBITDA, compustat.FeatureNetIncome, compustat.FeatureCapex,
		compustat.FeatureTotalRevenue, compustat.FeatureRAndD, compustat.FeaturePreferredStock,
		compustat.FeatureQuarterlyRevenue,
		compustat.FeatureIPODate, compustat.FeatureCIK, compustat.FeatureGICCode,
		compustat.FeatureGICSector,
	} {
		featureCatalog[feature] = config.ModuleCompustat
	}
	for _, feature := range []string{fred.FeatureGDP, fred.FeatureInitialClaims} {
		featureCatalog[feature] = config.ModuleFred
	}
}

// FeaturesByModule lists every known feature grouped by the module that
// serves it, independent of what the configuration enables.
func FeaturesByModule() map[string][]string {
	byModule := map[string][]string{}
	for feature, module := range featureCatalog {
		byModule[module] = append(byModule[module], feature)
	}
	for module := range byModule {
		sort.Strings(byModule[module])
	}
	return byModule
}

// Registry holds the configured data-source modules and the bulk-execution
// backend sized from configuration.
type Registry struct {
	modules map[string]source.Source
	order   []string
	backend exec.Backend
}

// New builds the registry, connecting every module the configuration
// enables. Credentials are resolved through the secrets provider.
func New(ctx context.Context, cfg *config.Registry, provider secrets.Provider) (*Registry, error) {
	log := logger.FromContext(ctx)

	registry := &Registry{
		modules: map[string]source.Source{},
		backend: exec.New(cfg.Workers),
	}

	for _, name := range cfg.EnabledModules() {
		module, err := buildModule(ctx, name, cfg.DateFormat(name), provider)
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("error building module %q: %w", name, err)
		}

		log.Info("module enabled", "module", name)
		registry.modules[name] = module
		registry.order = append(registry.order, name)
	}
	return registry, nil
}

func buildModule(ctx context.Context, name, dateFormat string, provider secrets.Provider) (source.Source, error) {
	switch name {
	case config.ModuleQAD:
		cfg, err := qad.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return qad.New(ctx, cfg, provider, dateFormat)
	case config.ModuleCompustat:
		cfg, err := compustat.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return compustat.New(ctx, cfg, provider, dateFormat)
	case config.ModuleFred:
		cfg, err := fred.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return fred.New(cfg, provider)
	}
	return nil, fmt.Errorf("unknown module %q", name)
}

// FromModules builds a registry over already constructed modules. Every
// given module is enabled.
func FromModules(workers int, modules ...source.Source) *Registry {
	registry := &Registry{
		modules: map[string]source.Source{},
		backend: exec.New(workers),
	}
	for _, module := range modules {
		registry.modules[module.Name()] = module
		registry.order = append(registry.order, module.Name())
	}
	return registry
}

// Module returns the named module, or NotEnabledError when the
// configuration does not enable it.
func (r *Registry) Module(name string) (source.Source, error) {
	module, ok := r.modules[name]
	if !ok {
		return nil, NotEnabledError{Module: name}
	}
	return module, nil
}

// DependsOn checks that every named module is enabled, returning
// NotEnabledError for the first one that is not. Callers composing
// multi-module workflows use it to fail before any I/O.
func (r *Registry) DependsOn(names ...string) error {
	for _, name := range names {
		if _, ok := r.modules[name]; !ok {
			return NotEnabledError{Module: name}
		}
	}
	return nil
}

// PanelBuilder is the index-universe API of the QAD module.
type PanelBuilder interface {
	SP500Panel(ctx context.Context, start, end time.Time, freq panel.Frequency) (*panel.Panel, error)
	SP1500Panel(ctx context.Context, start, end time.Time, freq panel.Frequency) (*panel.Panel, error)
	DatastreamIndexPanel(ctx context.Context, index string, start, end time.Time, freq panel.Frequency) (*panel.Panel, error)
	SearchIndexes(ctx context.Context, match string) ([]qad.DatastreamIndex, error)
}

// EconomicData is the series API of the FRED module.
type EconomicData interface {
	SeriesObservations(ctx context.Context, seriesID string, start, end time.Time) ([]panel.Observation, error)
	Search(ctx context.Context, text string) ([]fred.Series, error)
}

// QAD returns the QAD module's panel constructors.
func (r *Registry) QAD() (PanelBuilder, error) {
	module, err := r.Module(config.ModuleQAD)
	if err != nil {
		return nil, err
	}

	builder, ok := module.(PanelBuilder)
	if !ok {
		return nil, fmt.Errorf("module %q does not build index panels", module.Name())
	}
	return builder, nil
}

// Compustat returns the fundamentals module.
func (r *Registry) Compustat() (source.Source, error) {
	return r.Module(config.ModuleCompustat)
}

// Fred returns the FRED module's series and search API.
func (r *Registry) Fred() (EconomicData, error) {
	module, err := r.Module(config.ModuleFred)
	if err != nil {
		return nil, err
	}

	economicData, ok := module.(EconomicData)
	if !ok {
		return nil, fmt.Errorf("module %q does not serve economic series", module.Name())
	}
	return economicData, nil
}

// Modules lists the enabled modules in configuration order.
func (r *Registry) Modules() []source.Source {
	modules := make([]source.Source, 0, len(r.order))
	for _, name := range r.order {
		modules = append(modules, r.modules[name])
	}
	return modules
}

// Backend returns the bulk-execution backend sized from configuration.
func (r *Registry) Backend() exec.Backend {
	return r.backend
}

// ApplyFeature attaches the named feature to the panel through the module
// that serves it. Features of disabled modules yield NotEnabledError,
// features no module knows yield ErrUnknownFeature.
func (r *Registry) ApplyFeature(ctx context.Context, p *panel.Panel, feature string) error {
	owner, known := featureCatalog[feature]
	if !known {
		return fmt.Errorf("%w: %q", source.ErrUnknownFeature, feature)
	}

	module, err := r.Module(owner)
	if err != nil {
		return err
	}
	return module.ApplyFeature(ctx, p, feature)
}

// ApplyFeatures attaches every named feature, in order.
func (r *Registry) ApplyFeatures(ctx context.Context, p *panel.Panel, features []string) error {
	for _, feature := range features {
		if err := r.ApplyFeature(ctx, p, feature); err != nil {
			return fmt.Errorf("error applying feature %q: %w", feature, err)
		}
	}
	return nil
}

// Close releases every module's connections.
func (r *Registry) Close() {
	for _, module := range r.modules {
		module.Close()
	}
}
