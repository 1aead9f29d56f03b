package main

import (
	"fmt"
	"os"

	"mercator-hq/chronicle/pkg/cli"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Chronicle - historic data queries and retention reports",
	Long: `Chronicle reads the historic record store of a process engine.

It provides:
  - Filtered, ordered and paged queries over historic entities
  - Cleanable reports per definition or batch type, driven by retention TTLs
  - A REST API with health probes, Prometheus metrics and tracing
  - Bulk import of historic records into SQLite

Configuration is read from --config and CHRONICLE_* environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
