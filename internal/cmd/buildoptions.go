// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Barclays/research-data-science/internal/config"
	"github.com/Barclays/research-data-science/internal/panel"
	"github.com/Barclays/research-data-science/internal/registry"
)

const (
	indexFlagName  = "index"
	indexFlagUsage = "Index universe to build the panel from: sp500, sp1500 or a Datastream index list code or name"

	keysFlagName  = "keys"
	keysFlagUsage = "Comma separated list of security keys to build the panel from"

	keyNameFlagName    = "key-name"
	keyNameFlagUsage   = "Security key type of the --keys values: cusip or sedol"
	keyNameFlagDefault = panel.KeyNameCusip

	startFlagName = "start"
	endFlagName   = "end"
	dateFlagUsage = "Panel date range bound, formatted as 2006-01-02"

	frequencyFlagName    = "frequency"
	frequencyFlagUsage   = "Panel date grid frequency: D, M, BM or Q"
	frequencyFlagDefault = string(panel.MonthEnd)

	featureFlagName  = "feature"
	featureFlagUsage = "Feature to attach to the panel. Can be specified multiple times."

	outputFlagName  = "output"
	outputFlagShort = "o"
	outputFlagUsage = "Write the csv to this path instead of stdout"
)

const flagDateLayout = "2006-01-02"

// buildFlags holds the flags for the "build" command.
type buildFlags struct {
	registryPath string
	index        string
	keys         []string
	keyName      string
	start        string
	end          string
	frequency    string
	features     []string
	outputPath   string
}

// addFlags adds the cli flags to the cobra command.
func (f *buildFlags) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.registryPath, registryFileFlagName, registryFileFlagShort, "", registryFileFlagUsage)
	flags.StringVar(&f.index, indexFlagName, "", indexFlagUsage)
	flags.StringSliceVar(&f.keys, keysFlagName, nil, keysFlagUsage)
	flags.StringVar(&f.keyName, keyNameFlagName, keyNameFlagDefault, keyNameFlagUsage)
	flags.StringVar(&f.start, startFlagName, "", dateFlagUsage)
	flags.StringVar(&f.end, endFlagName, "", dateFlagUsage)
	flags.StringVar(&f.frequency, frequencyFlagName, frequencyFlagDefault, frequencyFlagUsage)
	flags.StringArrayVar(&f.features, featureFlagName, nil, featureFlagUsage)
	flags.StringVarP(&f.outputPath, outputFlagName, outputFlagShort, "", outputFlagUsage)
}

// toOptions converts the build flags to buildOptions.
func (f *buildFlags) toOptions(cmd *cobra.Command) (*buildOptions, error) {
	registryConfig, err := loadRegistryConfig(f.registryPath)
	if err != nil {
		return nil, err
	}

	var output io.Writer = cmd.OutOrStdout()
	closer := func() error { return nil }
	if f.outputPath != "" {
		file, err := os.Create(f.outputPath)
		if err != nil {
			return nil, fmt.Errorf("error creating output file: %w", err)
		}
		output = file
		closer = file.Close
	}

	return &buildOptions{
		registryConfig: registryConfig,
		index:          strings.ToLower(f.index),
		keys:           f.keys,
		keyName:        f.keyName,
		start:          f.start,
		end:            f.end,
		frequency:      panel.Frequency(f.frequency),
		features:       f.features,
		output:         output,
		closeOutput:    closer,
	}, nil
}

// buildOptions holds the options set for the current build invocation.
type buildOptions struct {
	registryConfig *config.Registry
	index          string
	keys           []string
	keyName        string
	start          string
	end            string
	frequency      panel.Frequency
	features       []string
	output         io.Writer
	closeOutput    func() error
}

// validate checks that the options describe a buildable panel.
func (o *buildOptions) validate() error {
	if o.start == "" || o.end == "" {
		return errNoDates
	}
	if o.index == "" && len(o.keys) == 0 {
		return errNoUniverse
	}
	if o.index != "" && len(o.keys) > 0 {
		return errBothUniverses
	}
	return nil
}

// execute builds the panel, attaches the requested features and writes it
// as csv.
func (o *buildOptions) execute(ctx context.Context) error {
	start, err := time.Parse(flagDateLayout, o.start)
	if err != nil {
		return fmt.Errorf("error parsing start date: %w", err)
	}
	end, err := time.Parse(flagDateLayout, o.end)
	if err != nil {
		return fmt.Errorf("error parsing end date: %w", err)
	}

	reg, err := registry.New(ctx, o.registryConfig, credentials())
	if err != nil {
		return err
	}
	defer reg.Close()

	p, err := o.basePanel(ctx, reg, start, end)
	if err != nil {
		return err
	}

	if err := reg.ApplyFeatures(ctx, p, o.features); err != nil {
		return err
	}

	if err := p.WriteCSV(o.output); err != nil {
		return err
	}
	return o.closeOutput()
}

func (o *buildOptions) basePanel(ctx context.Context, reg *registry.Registry, start, end time.Time) (*panel.Panel, error) {
	if o.index == "" {
		return panel.New(o.keyName, o.keys, start, end, o.frequency)
	}

	builder, err := reg.QAD()
	if err != nil {
		return nil, err
	}

	switch o.index {
	case "sp500":
		return builder.SP500Panel(ctx, start, end, o.frequency)
	case "sp1500":
		return builder.SP1500Panel(ctx, start, end, o.frequency)
	}
	return builder.DatastreamIndexPanel(ctx, o.index, start, end, o.frequency)
}
