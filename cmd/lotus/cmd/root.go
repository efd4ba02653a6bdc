// Package cmd provides the Cobra commands for the Lotus CLI, grounded on the
// teacher's cli/cmd/root.go persistent-flag and config-loading shape.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lotusdb/lotus"
	"github.com/lotusdb/lotus/cmd/lotus/output"
	"github.com/lotusdb/lotus/config"
)

var (
	// Version, Commit, and BuildDate are set via ldflags during build.
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	cfgFile   string
	outputFmt string
	noHeaders bool

	cfg    *config.Config
	client *lotus.Client
	fmtr   *output.Formatter
)

var rootCmd = &cobra.Command{
	Use:   "lotus",
	Short: "Lotus CLI - run ad-hoc read-only queries through the safe SQL gateway",
	Long: `Lotus CLI runs templated, read-only queries through the same binder,
deny-list, preflight, and visibility pipeline an embedding application would use.

Get started:
  lotus query "SELECT * FROM users WHERE id = {{id}}" --dsn <dsn> --var id=1
  lotus --help`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: lotus.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false, "hide table headers")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadClient reads configuration and builds the shared Client/Formatter, run once
// per invocation via each command's PreRunE.
func loadClient(*cobra.Command, []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	client, err = lotus.New(cfg)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	fmtr = output.NewFormatter(format, noHeaders)
	return nil
}
