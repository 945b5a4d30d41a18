package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nextmavens/warden/pkg/cli"
	"nextmavens/warden/pkg/config"
	"nextmavens/warden/pkg/detect"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage per-project pattern detection overrides",
	Long: `Inspect and change per-project overrides for the suspicious
pattern detectors (sql_injection, auth_bruteforce, api_key_creation).

Only explicitly set fields override the global defaults; everything
else keeps its default value.`,
}

var patternsProject string

var patternsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a project's stored pattern overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("patterns get", err)
		}
		defer state.Close()

		overrides, err := state.GetOverrides(cmd.Context(), patternsProject)
		if err != nil {
			return cli.NewCommandError("patterns get", err)
		}
		if overrides == nil {
			fmt.Printf("Project %s uses the global pattern defaults\n", patternsProject)
			return nil
		}
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, overrides)
	},
}

var patternsSetFlags struct {
	pattern        string
	enabled        bool
	minOccurrences int64
	window         time.Duration
	suspend        bool
}

var patternsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Override one pattern rule for a project",
	Long: `Override fields of one pattern rule for a project. Only flags you
pass are stored; unset fields keep the global default.

Examples:
  # Stricter SQL injection rule for a sensitive project
  warden patterns set -p proj-123 --pattern sql_injection --min-occurrences 1

  # Warn instead of suspending on brute force
  warden patterns set -p proj-123 --pattern auth_bruteforce --suspend=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := detect.PatternKind(patternsSetFlags.pattern)
		var valid bool
		for _, k := range detect.PatternKinds {
			if k == kind {
				valid = true
				break
			}
		}
		if !valid {
			return cli.NewConfigError("pattern", fmt.Sprintf("unknown pattern kind %q", patternsSetFlags.pattern))
		}

		rule := &detect.PatternRuleOverride{}
		if cmd.Flags().Changed("enabled") {
			v := patternsSetFlags.enabled
			rule.Enabled = &v
		}
		if cmd.Flags().Changed("min-occurrences") {
			v := patternsSetFlags.minOccurrences
			rule.MinOccurrences = &v
		}
		if cmd.Flags().Changed("window") {
			v := patternsSetFlags.window
			rule.Window = &v
		}
		if cmd.Flags().Changed("suspend") {
			v := patternsSetFlags.suspend
			rule.SuspendOnDetection = &v
		}

		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("patterns set", err)
		}
		defer state.Close()

		ctx := cmd.Context()
		overrides, err := state.GetOverrides(ctx, patternsProject)
		if err != nil {
			return cli.NewCommandError("patterns set", err)
		}
		if overrides == nil {
			overrides = &detect.PatternOverrides{ProjectID: patternsProject}
		}
		switch kind {
		case detect.PatternSQLInjection:
			overrides.SQLInjection = rule
		case detect.PatternAuthBruteForce:
			overrides.AuthBruteForce = rule
		case detect.PatternAPIKeyCreation:
			overrides.APIKeyCreation = rule
		}
		overrides.UpdatedAt = time.Now()

		if err := state.SetOverrides(ctx, overrides); err != nil {
			return cli.NewCommandError("patterns set", err)
		}
		fmt.Printf("✓ %s override stored for project %s\n", kind, patternsProject)
		return nil
	},
}

var patternsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove a project's pattern overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("patterns clear", err)
		}
		defer state.Close()

		if err := state.DeleteOverrides(cmd.Context(), patternsProject); err != nil {
			return cli.NewCommandError("patterns clear", err)
		}
		fmt.Printf("✓ Pattern overrides cleared for project %s\n", patternsProject)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.AddCommand(patternsGetCmd)
	patternsCmd.AddCommand(patternsSetCmd)
	patternsCmd.AddCommand(patternsClearCmd)

	patternsCmd.PersistentFlags().StringVarP(&patternsProject, "project", "p", "", "project ID (required)")
	_ = patternsCmd.MarkPersistentFlagRequired("project")

	patternsSetCmd.Flags().StringVar(&patternsSetFlags.pattern, "pattern", "", "pattern kind (sql_injection, auth_bruteforce, api_key_creation)")
	_ = patternsSetCmd.MarkFlagRequired("pattern")
	patternsSetCmd.Flags().BoolVar(&patternsSetFlags.enabled, "enabled", true, "enable or disable the rule")
	patternsSetCmd.Flags().Int64Var(&patternsSetFlags.minOccurrences, "min-occurrences", 0, "occurrences needed to confirm")
	patternsSetCmd.Flags().DurationVar(&patternsSetFlags.window, "window", 0, "detection window")
	patternsSetCmd.Flags().BoolVar(&patternsSetFlags.suspend, "suspend", true, "suspend on detection instead of warning")
}
