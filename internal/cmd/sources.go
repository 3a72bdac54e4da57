// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Barclays/research-data-science/internal/registry"
)

const (
	sourcesCmdUsage = "sources"
	sourcesCmdShort = "list the data-source modules and their features"

	sourcesCmdExample = `# list modules with their enablement from a registry file
	ctrlaltdata sources --registry-file registry.yaml`
)

// SourcesCmd returns the "sources" cli command that prints the module
// catalog without connecting to anything.
func SourcesCmd() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:     sourcesCmdUsage,
		Short:   heredoc.Doc(sourcesCmdShort),
		Example: heredoc.Doc(sourcesCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registryConfig, err := loadRegistryConfig(flags.registryPath)
			if err != nil {
				return handleError(cmd, err)
			}

			byModule := registry.FeaturesByModule()
			names := make([]string, 0, len(byModule))
			for name := range byModule {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				state := "disabled"
				if registryConfig.Enabled(name) {
					state = "enabled"
				}
				fmt.Fprintf(out, "%s (%s)\n", name, state)
				fmt.Fprintf(out, "  features: %s\n", strings.Join(byModule[name], ", "))
			}
			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}
