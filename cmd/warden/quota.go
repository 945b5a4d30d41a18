package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"nextmavens/warden/pkg/cli"
	"nextmavens/warden/pkg/config"
	"nextmavens/warden/pkg/quota"
	"nextmavens/warden/pkg/storage"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Manage per-project resource quotas",
	Long: `Inspect and change per-project resource caps.

Projects without stored caps use the platform defaults. Setting a cap
stores an override; deleting it reverts the project to the default.`,
}

var quotaProject string

// quotaStore builds a quota store over the state database.
func quotaStore(cfg *config.Config, state *storage.SQLiteStore) *quota.Store {
	return quota.NewStoreWithDefaults(state.QuotaRepository(), capOverrides(cfg.Quotas.Defaults))
}

var quotaGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show effective quotas for a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("quota get", err)
		}
		defer state.Close()

		quotas, err := quotaStore(cfg, state).GetAll(cmd.Context(), quotaProject)
		if err != nil {
			return cli.NewCommandError("quota get", err)
		}

		if cli.OutputFormat(outputFormat) == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, quotas)
		}

		w := cli.NewTabWriter(os.Stdout)
		fmt.Fprintln(w, "CAP\tVALUE\tSOURCE")
		for _, q := range quotas {
			source := "custom"
			if q.UpdatedAt.IsZero() {
				source = "default"
			}
			fmt.Fprintf(w, "%s\t%.0f\t%s\n", q.CapType, q.CapValue, source)
		}
		return w.Flush()
	},
}

var quotaSetCmd = &cobra.Command{
	Use:   "set <cap-type> <value>",
	Short: "Set a custom cap value for a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		capType := quota.CapType(args[0])
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return cli.NewConfigError("cap_value", fmt.Sprintf("not a number: %s", args[1]))
		}

		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("quota set", err)
		}
		defer state.Close()

		if err := quotaStore(cfg, state).Set(cmd.Context(), quotaProject, capType, value); err != nil {
			return cli.NewCommandError("quota set", err)
		}
		fmt.Printf("✓ %s = %.0f for project %s\n", capType, value, quotaProject)
		return nil
	},
}

var quotaDeleteCmd = &cobra.Command{
	Use:   "delete <cap-type>",
	Short: "Remove a custom cap so the default applies again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("quota delete", err)
		}
		defer state.Close()

		if err := quotaStore(cfg, state).Delete(cmd.Context(), quotaProject, quota.CapType(args[0])); err != nil {
			return cli.NewCommandError("quota delete", err)
		}
		fmt.Printf("✓ %s reverted to default for project %s\n", args[0], quotaProject)
		return nil
	},
}

var quotaResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard all custom caps and re-apply defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("quota reset", err)
		}
		defer state.Close()

		if err := quotaStore(cfg, state).Reset(cmd.Context(), quotaProject); err != nil {
			return cli.NewCommandError("quota reset", err)
		}
		fmt.Printf("✓ Quotas reset to defaults for project %s\n", quotaProject)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quotaCmd)
	quotaCmd.AddCommand(quotaGetCmd)
	quotaCmd.AddCommand(quotaSetCmd)
	quotaCmd.AddCommand(quotaDeleteCmd)
	quotaCmd.AddCommand(quotaResetCmd)

	quotaCmd.PersistentFlags().StringVarP(&quotaProject, "project", "p", "", "project ID (required)")
	_ = quotaCmd.MarkPersistentFlagRequired("project")
}
