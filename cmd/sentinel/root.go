package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - browser threat-detection decision core",
	Long: `Sentinel is the decision core of a browser threat-detection pipeline.

It turns detector alerts into enforcement decisions, providing:
  - Priority-ordered policy matching (file hash, URL pattern, rule name)
  - Weighted multi-detector verdict scoring with confidence
  - Content-addressed verdict caching with severity-based expiry
  - Threat history, retention sweeps, and audit logging

For more information, visit: https://github.com/sentinel-hq/sentinel`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
