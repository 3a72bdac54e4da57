// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	buildCmdUsage = "build"
	buildCmdShort = "build a panel dataset and write it as csv"
	buildCmdLong  = `Build a panel dataset and write it as csv.

	The panel universe comes either from an index membership (S&P 500,
	S&P 1500 or any Datastream index list) or from an explicit list of
	security keys. Features from the enabled data-source modules are
	attached with as-of semantics: every row only carries values that
	were observable on its date.`

	buildCmdExample = `# S&P 500 monthly closing prices for 2023
	ctrlaltdata build --index sp500 --start 2023-01-01 --end 2023-12-31 --feature closing_price

	# explicit cusips with fundamentals, written to a file
	ctrlaltdata build --keys 037833100,17275R102 --start 2023-01-31 --end 2023-06-30 \
		--feature sales --feature closing_price -o panel.csv`
)

// BuildCmd returns the "build" cli command for creating panel datasets.
func BuildCmd() *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:     buildCmdUsage,
		Short:   heredoc.Doc(buildCmdShort),
		Long:    heredoc.Doc(buildCmdLong),
		Example: heredoc.Doc(buildCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.toOptions(cmd)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validate(); err != nil {
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
