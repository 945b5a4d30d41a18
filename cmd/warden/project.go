package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nextmavens/warden/pkg/cli"
	"nextmavens/warden/pkg/config"
	"nextmavens/warden/pkg/project"
	"nextmavens/warden/pkg/quota"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage registered projects",
}

var projectAddFlags struct {
	name        string
	ownerEmail  string
	environment string
}

var projectAddCmd = &cobra.Command{
	Use:   "add <project-id>",
	Short: "Register a project and apply default quotas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := project.Environment(projectAddFlags.environment)
		switch env {
		case project.EnvProduction, project.EnvStaging, project.EnvDevelopment:
		default:
			return cli.NewConfigError("environment", fmt.Sprintf("unknown environment %q", projectAddFlags.environment))
		}

		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("project add", err)
		}
		defer state.Close()

		ctx := cmd.Context()
		p := &project.Project{
			ID:          args[0],
			Name:        projectAddFlags.name,
			OwnerEmail:  projectAddFlags.ownerEmail,
			Environment: env,
			Status:      project.StatusActive,
			CreatedAt:   time.Now(),
		}
		if err := state.UpsertProject(ctx, p); err != nil {
			return cli.NewCommandError("project add", err)
		}

		quotas := quota.NewStoreWithDefaults(state.QuotaRepository(), capOverrides(cfg.Quotas.Defaults))
		if err := quotas.ApplyDefaults(ctx, p.ID); err != nil {
			return cli.NewCommandError("project add", err)
		}

		fmt.Printf("✓ Project %s registered with default quotas\n", p.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("project list", err)
		}
		defer state.Close()

		projects, err := state.ListActive(cmd.Context())
		if err != nil {
			return cli.NewCommandError("project list", err)
		}

		if cli.OutputFormat(outputFormat) == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, projects)
		}

		w := cli.NewTabWriter(os.Stdout)
		fmt.Fprintln(w, "ID\tNAME\tENVIRONMENT\tSTATUS\tCREATED")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				p.ID, p.Name, p.Environment, p.Status, p.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)

	projectAddCmd.Flags().StringVar(&projectAddFlags.name, "name", "", "human-readable project name")
	projectAddCmd.Flags().StringVar(&projectAddFlags.ownerEmail, "owner", "", "owner email for suspension notices")
	projectAddCmd.Flags().StringVar(&projectAddFlags.environment, "env", "production", "deployment environment (production, staging, development)")
}
