// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package source defines the contract data-source modules implement to be
// wired into the module registry.
package source

import (
	"context"
	"errors"

	"github.com/Barclays/research-data-science/internal/panel"
)

// ErrUnknownFeature reports a feature name no module implements.
var ErrUnknownFeature = errors.New("unknown feature")

// Source is a configured data-source module.
type Source interface {
	// Name returns the registry name of the module.
	Name() string
	// Features lists the panel features the module can attach.
	Features() []string
	// ApplyFeature attaches the named feature to the panel.
	ApplyFeature(ctx context.Context, p *panel.Panel, feature string) error
	// Close releases the module's connections.
	Close()
}
