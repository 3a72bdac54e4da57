// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	serveCmdUsage = "serve"
	serveCmdShort = "serve the data-access layer over http"
	serveCmdLong  = `Serve the data-access layer over HTTP.

	The server exposes panel building under POST /panels, the FRED series
	and search endpoints under /fred, and liveness and readiness probes
	under /-/healthz and /-/ready. Modules are connected at startup
	according to the registry configuration.`

	serveCmdExample = `# serve with every module enabled
	ctrlaltdata serve

	# serve only the modules enabled in a registry file
	ctrlaltdata serve --registry-file registry.yaml`
)

// ServeCmd returns the "serve" cli command for running the HTTP server.
func ServeCmd() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:     serveCmdUsage,
		Short:   heredoc.Doc(serveCmdShort),
		Long:    heredoc.Doc(serveCmdLong),
		Example: heredoc.Doc(serveCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.toOptions()
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.execute(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}
