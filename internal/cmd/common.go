// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package cmd contains the cli commands of the data-access layer: building
// panels, serving them over HTTP and inspecting the available sources.
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Barclays/research-data-science/internal/config"
	"github.com/Barclays/research-data-science/internal/secrets"
)

var (
	errNoDates       = errors.New("both --start and --end dates are required")
	errNoUniverse    = errors.New("either --index or --keys must be provided")
	errNoSearchText  = errors.New("no search text provided")
	errBothUniverses = errors.New("--index and --keys are mutually exclusive")
)

const (
	registryFileFlagName  = "registry-file"
	registryFileFlagShort = "r"
	registryFileFlagUsage = "Path to the module registry configuration file. When omitted every module is enabled."
)

// handleError will do custom print error handling based on the type of error
// received. It will return nil if the command must return 0 exit code,
// otherwise it will return the original error.
func handleError(cmd *cobra.Command, err error) error {
	switch {
	case errors.Is(err, errNoSearchText):
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return nil
	case errors.Is(err, errNoDates), errors.Is(err, errNoUniverse), errors.Is(err, errBothUniverses):
		cmd.PrintErrln(err)
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return err
	default:
		cmd.PrintErrln(err)
		return err
	}
}

// loadRegistryConfig reads the registry file, falling back to the default
// configuration with every module enabled when no path is given.
func loadRegistryConfig(path string) (*config.Registry, error) {
	if path == "" {
		return config.DefaultRegistry(), nil
	}
	return config.NewRegistryFromPath(path)
}

// credentials is the secrets provider used by every command. Overridable in
// tests.
var credentials = func() secrets.Provider {
	return secrets.Env()
}
