// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Barclays/research-data-science/internal/config"
	"github.com/Barclays/research-data-science/internal/logger"
	"github.com/Barclays/research-data-science/internal/registry"
	"github.com/Barclays/research-data-science/internal/server"
)

const serveLoggerName = "ctrlaltdata:serve"

// serveFlags holds the flags for the "serve" command.
type serveFlags struct {
	registryPath string
}

// addFlags adds the cli flags to the cobra command.
func (f *serveFlags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.registryPath, registryFileFlagName, registryFileFlagShort, "", registryFileFlagUsage)
}

// toOptions converts the serve flags to serveOptions.
func (f *serveFlags) toOptions() (*serveOptions, error) {
	registryConfig, err := loadRegistryConfig(f.registryPath)
	if err != nil {
		return nil, err
	}
	return &serveOptions{registryConfig: registryConfig}, nil
}

// serveOptions holds the options set for the current serve invocation.
type serveOptions struct {
	registryConfig *config.Registry
}

// execute connects the enabled modules and serves HTTP until the process
// receives an interrupt.
func (o *serveOptions) execute(ctx context.Context) error {
	log := logger.FromContext(ctx).WithName(serveLoggerName)

	reg, err := registry.New(ctx, o.registryConfig, credentials())
	if err != nil {
		return err
	}
	defer reg.Close()

	srv, err := server.NewServer(ctx, reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.StartAsync(ctx)
	log.Info("server started")

	<-ctx.Done()
	log.Info("shutdown signal received")
	return srv.Stop()
}
