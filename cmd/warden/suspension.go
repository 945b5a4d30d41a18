package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nextmavens/warden/pkg/cli"
	"nextmavens/warden/pkg/config"
	"nextmavens/warden/pkg/suspension"
	"nextmavens/warden/pkg/telemetry/logging"
)

var suspendNotes string

var suspendCmd = &cobra.Command{
	Use:   "suspend <project-id>",
	Short: "Suspend a project manually",
	Long: `Suspend a project manually. Manual suspensions work in every
environment, including staging and development.

Suspending an already-suspended project is a no-op.

Examples:
  warden suspend proj-123 --notes "abuse report #4521"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := adminApp()
		if err != nil {
			return cli.NewCommandError("suspend", err)
		}
		defer application.Close()

		rec, created, err := application.controller.Suspend(cmd.Context(), args[0], suspension.Reason{
			Details: "manual suspension",
		}, suspendNotes, suspension.TypeManual)
		if err != nil {
			return cli.NewCommandError("suspend", err)
		}

		// Give the outbox a moment to flush audit and notification tasks.
		application.outbox.Drain(2 * time.Second)

		if !created {
			fmt.Printf("Project %s was already suspended (record %s)\n", args[0], rec.ID)
			return nil
		}
		fmt.Printf("✓ Project %s suspended (record %s)\n", args[0], rec.ID)
		return nil
	},
}

var unsuspendCmd = &cobra.Command{
	Use:   "unsuspend <project-id>",
	Short: "Lift a project's suspension",
	Long: `Resolve a project's active suspension and restore it to active
status. Unsuspending a project that is not suspended is a no-op.

Examples:
  warden unsuspend proj-123 --notes "owner remediated"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := adminApp()
		if err != nil {
			return cli.NewCommandError("unsuspend", err)
		}
		defer application.Close()

		rec, err := application.controller.Unsuspend(cmd.Context(), args[0], suspendNotes)
		if err != nil {
			return cli.NewCommandError("unsuspend", err)
		}

		application.outbox.Drain(2 * time.Second)

		if rec == nil {
			fmt.Printf("Project %s is not suspended\n", args[0])
			return nil
		}
		fmt.Printf("✓ Project %s reactivated\n", args[0])
		return nil
	},
}

var suspensionsCmd = &cobra.Command{
	Use:   "suspensions",
	Short: "List and inspect suspensions",
}

var suspensionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active suspensions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("suspensions list", err)
		}
		defer state.Close()

		records, err := state.ListActiveSuspensions(cmd.Context())
		if err != nil {
			return cli.NewCommandError("suspensions list", err)
		}

		if cli.OutputFormat(outputFormat) == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, records)
		}

		w := cli.NewTabWriter(os.Stdout)
		fmt.Fprintln(w, "PROJECT\tTYPE\tREASON\tSUSPENDED AT")
		for _, rec := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				rec.ProjectID, rec.Type, rec.Reason.String(), rec.SuspendedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var suspensionsHistoryCmd = &cobra.Command{
	Use:   "history <project-id>",
	Short: "Show a project's full suspension history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		state, err := openStateStore(cfg)
		if err != nil {
			return cli.NewCommandError("suspensions history", err)
		}
		defer state.Close()

		entries, err := state.History(cmd.Context(), args[0])
		if err != nil {
			return cli.NewCommandError("suspensions history", err)
		}

		if cli.OutputFormat(outputFormat) == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, entries)
		}

		w := cli.NewTabWriter(os.Stdout)
		fmt.Fprintln(w, "AT\tACTION\tREASON\tNOTES")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				e.OccurredAt.Format(time.RFC3339), e.Action, e.Reason, e.Notes)
		}
		return w.Flush()
	},
}

// adminApp wires the full pipeline with logging quiet enough for
// interactive use.
func adminApp() (*app, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, err
	}
	if _, err := logging.Setup(logging.Config{
		Level:     "warn",
		Format:    cfg.Telemetry.Logging.Format,
		RedactPII: true,
	}); err != nil {
		return nil, err
	}
	return newApp(cfg, nil)
}

func init() {
	rootCmd.AddCommand(suspendCmd)
	rootCmd.AddCommand(unsuspendCmd)
	rootCmd.AddCommand(suspensionsCmd)
	suspensionsCmd.AddCommand(suspensionsListCmd)
	suspensionsCmd.AddCommand(suspensionsHistoryCmd)

	suspendCmd.Flags().StringVar(&suspendNotes, "notes", "", "operator notes recorded in history")
	unsuspendCmd.Flags().StringVar(&suspendNotes, "notes", "", "operator notes recorded in history")
}
