package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nextmavens/warden/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate the configuration file without starting anything.

Defaults are applied and environment variable overrides are honored, so
this checks the configuration exactly as the service would see it.

Examples:
  warden validate
  warden validate --config /etc/warden/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}

		fmt.Println("✓ Configuration valid")
		fmt.Printf("  state store:      %s\n", cfg.Storage.StatePath)
		fmt.Printf("  detection store:  %s\n", cfg.Storage.DetectionsPath)
		fmt.Printf("  sweep schedule:   %s\n", cfg.Sweep.Schedule)
		fmt.Printf("  cache backend:    %s\n", cfg.Cache.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
