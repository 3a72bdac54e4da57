// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Barclays/research-data-science/internal/source/fred"
)

const (
	fredSearchCmdUsage = "fred-search TEXT..."
	fredSearchCmdShort = "search the fred catalog for economic series"

	fredSearchCmdExample = `# find series about unemployment claims
	ctrlaltdata fred-search initial claims`
)

// fredModuleBuilder builds the FRED module from the environment.
// Overridable in tests.
var fredModuleBuilder = func() (*fred.Fred, error) {
	cfg, err := fred.NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return fred.New(cfg, credentials())
}

// FredSearchCmd returns the "fred-search" cli command.
func FredSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     fredSearchCmdUsage,
		Short:   heredoc.Doc(fredSearchCmdShort),
		Example: heredoc.Doc(fredSearchCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return handleError(cmd, errNoSearchText)
			}

			if err := runFredSearch(cmd.Context(), cmd, strings.Join(args, " ")); err != nil {
				return handleError(cmd, err)
			}
			return nil
		},
	}
}

func runFredSearch(ctx context.Context, cmd *cobra.Command, text string) error {
	module, err := fredModuleBuilder()
	if err != nil {
		return err
	}

	series, err := module.Search(ctx, text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range series {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", s.ID, s.Title, s.Frequency, s.Units)
	}
	return nil
}
