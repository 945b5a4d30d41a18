package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nextmavens/warden/pkg/cli"
	"nextmavens/warden/pkg/config"
	"nextmavens/warden/pkg/telemetry/logging"
)

var sweepFlags struct {
	allEnvironments bool
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single suspension sweep and exit",
	Long: `Run one pass over all active projects, checking quotas and running
the anomaly detectors, then exit. This is the same evaluation the
scheduled sweep performs in service mode.

Examples:
  # Run a sweep with the default environment policy (production only)
  warden sweep

  # Include staging and development projects
  warden sweep --all-environments

  # Machine-readable summary
  warden sweep --output json`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().BoolVar(&sweepFlags.allEnvironments, "all-environments", false, "auto-suspend in every environment, not just production")
}

// sweepResult is the command output for one sweep run.
type sweepResult struct {
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Checked   int       `json:"checked"`
	Suspended int       `json:"suspended"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Warnings  int       `json:"warnings"`
	Projects  []string  `json:"suspended_projects,omitempty"`
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if sweepFlags.allEnvironments {
		cfg.Sweep.AllEnvironments = true
	}

	if _, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		RedactPII: true,
	}); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	// One-shot runs skip metric registration; there is no scrape
	// endpoint to serve them.
	application, err := newApp(cfg, nil)
	if err != nil {
		return cli.NewCommandError("sweep", err)
	}
	defer application.Close()

	ctx := cli.SetupSignalHandler()
	summary := application.orchestrator.Run(ctx)
	if summary.Err != nil {
		return cli.NewCommandError("sweep", summary.Err)
	}

	result := sweepResult{
		StartedAt: summary.StartedAt,
		Duration:  summary.Duration.String(),
		Checked:   summary.Checked,
		Suspended: summary.Suspended,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		Warnings:  summary.Warnings,
	}
	for _, rec := range summary.Records {
		result.Projects = append(result.Projects, rec.ProjectID)
	}

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result)
	}

	fmt.Printf("Sweep finished in %s\n", result.Duration)
	fmt.Printf("  checked:   %d\n", result.Checked)
	fmt.Printf("  suspended: %d\n", result.Suspended)
	fmt.Printf("  skipped:   %d\n", result.Skipped)
	fmt.Printf("  failed:    %d\n", result.Failed)
	fmt.Printf("  warnings:  %d\n", result.Warnings)
	for _, id := range result.Projects {
		fmt.Printf("  suspended project: %s\n", id)
	}
	return nil
}
