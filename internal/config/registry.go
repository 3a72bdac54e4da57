// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ModuleQAD is the name of the QAD data-source module.
	ModuleQAD = "qad"
	// ModuleCompustat is the name of the Compustat data-source module.
	ModuleCompustat = "compustat"
	// ModuleFred is the name of the FRED data-source module.
	ModuleFred = "fred"

	// DefaultDateFormat is the date layout used to interpolate dates in
	// data-layer requests when a source does not configure its own.
	DefaultDateFormat = "2006-01-02"
)

var (
	// ErrParsing reports failures that occur while decoding the registry file.
	ErrParsing = errors.New("error parsing")
	// ErrNotValid reports a registry file with invalid content.
	ErrNotValid = errors.New("registry configuration not valid")

	knownModules = map[string]struct{}{
		ModuleQAD:       {},
		ModuleCompustat: {},
		ModuleFred:      {},
	}
)

// SourceConfig holds the registry entry for a single data-source module.
type SourceConfig struct {
	Name       string `yaml:"name"`
	Enabled    bool   `yaml:"enabled"`
	DateFormat string `yaml:"dateFormat,omitempty"`
}

// Registry is the configuration-driven enablement list for data-source
// modules. It is built once at process start and passed by reference to
// every component that needs it.
type Registry struct {
	// Workers selects the bulk-execution backend: 1 runs analyses
	// serially, anything above runs them on a bounded worker pool.
	Workers int `yaml:"workers,omitempty"`

	Sources []SourceConfig `yaml:"sources"`
}

// NewRegistryFromPath parses the registry file at path and returns the module
// registry it contains. It reports failures encountered while reading or
// decoding the data.
func NewRegistryFromPath(path string) (*Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	registry := new(Registry)
	if err := decoder.Decode(registry); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
	}

	if err := registry.validate(); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
	}

	registry.applyDefaults()
	return registry, nil
}

// DefaultRegistry returns a registry with every known module enabled and
// default settings applied.
func DefaultRegistry() *Registry {
	registry := &Registry{
		Sources: []SourceConfig{
			{Name: ModuleQAD, Enabled: true},
			{Name: ModuleCompustat, Enabled: true},
			{Name: ModuleFred, Enabled: true},
		},
	}

	registry.applyDefaults()
	return registry
}

func (r *Registry) validate() error {
	errorsList := make([]string, 0)

	if r.Workers < 0 {
		errorsList = append(errorsList, "workers cannot be negative")
	}

	seen := map[string]struct{}{}
	for _, source := range r.Sources {
		if source.Name == "" {
			errorsList = append(errorsList, "source with empty name")
			continue
		}
		if _, ok := knownModules[source.Name]; !ok {
			errorsList = append(errorsList, fmt.Sprintf("unknown module %q", source.Name))
		}
		if _, ok := seen[source.Name]; ok {
			errorsList = append(errorsList, fmt.Sprintf("duplicated module %q", source.Name))
		}
		seen[source.Name] = struct{}{}
	}

	if len(errorsList) > 0 {
		return fmt.Errorf("%w: %s", ErrNotValid, strings.Join(errorsList, "; "))
	}
	return nil
}

func (r *Registry) applyDefaults() {
	if r.Workers < 1 {
		r.Workers = 1
	}

	for i := range r.Sources {
		if r.Sources[i].DateFormat == "" {
			r.Sources[i].DateFormat = DefaultDateFormat
		}
	}
}

// EnabledModules returns the names of the enabled data-source modules in
// registry order.
func (r *Registry) EnabledModules() []string {
	enabled := make([]string, 0, len(r.Sources))
	for _, source := range r.Sources {
		if source.Enabled {
			enabled = append(enabled, source.Name)
		}
	}
	return enabled
}

// Enabled reports whether the named module is enabled.
func (r *Registry) Enabled(name string) bool {
	for _, source := range r.Sources {
		if source.Name == name {
			return source.Enabled
		}
	}
	return false
}

// DateFormat returns the configured date layout for the named module.
func (r *Registry) DateFormat(name string) string {
	for _, source := range r.Sources {
		if source.Name == name && source.DateFormat != "" {
			return source.DateFormat
		}
	}
	return DefaultDateFormat
}
