package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - abuse prevention for hosted projects",
	Long: `Warden is a multi-tenant abuse-prevention service for hosted projects.

It provides:
  - Per-project resource quotas with platform defaults
  - Usage spike, error rate, and suspicious pattern detection
  - Automatic and manual project suspension with full history
  - A periodic sweep that evaluates every active project`,
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
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")
}
