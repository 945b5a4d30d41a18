package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"nextmavens/warden/pkg/cli"
	"nextmavens/warden/pkg/config"
	"nextmavens/warden/pkg/sweep"
	"nextmavens/warden/pkg/telemetry/logging"
	"nextmavens/warden/pkg/telemetry/metrics"
)

var runFlags struct {
	logLevel string
	schedule string
	dryRun   bool
	watch    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the warden service",
	Long: `Start the warden service with the specified configuration.

The service runs the suspension sweep on its cron schedule, serves the
Prometheus metrics endpoint, and processes suspension side effects
through the outbox.

Examples:
  # Start with default config
  warden run

  # Start with custom config
  warden run --config /etc/warden/config.yaml

  # Override the sweep schedule
  warden run --schedule "*/15 * * * *"

  # Validate config without starting the service
  warden run --dry-run

  # Reload detection thresholds when the config file changes
  warden run --watch`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.schedule, "schedule", "", "override sweep cron schedule")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the service")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload configuration on file change")
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.schedule != "" {
		cfg.Sweep.Schedule = runFlags.schedule
	}

	if _, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		RedactPII: true,
	}); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx := cli.SetupSignalHandler()

	slog.Info("starting warden",
		"version", Version,
		"state_path", cfg.Storage.StatePath,
		"sweep_schedule", cfg.Sweep.Schedule,
	)

	application, err := newApp(cfg, sweep.NewMetrics())
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer application.Close()

	scheduler := sweep.NewScheduler(application.orchestrator, cfg.Sweep.Schedule)
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer scheduler.Stop()

	var metricsServer *metrics.Server
	if cfg.Telemetry.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
		metricsServer.Start()
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}

	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			_ = watcher.Watch(ctx, func(next *config.Config) {
				// Detection thresholds take effect on the next sweep;
				// storage and telemetry settings need a restart.
				application.spikes.Reconfigure(spikeConfig(next.Detection.Spike))
				application.errorRates.Reconfigure(errorRateConfig(next.Detection.ErrorRate))
				application.patterns.Reconfigure(patternConfig(next.Detection.Patterns))
			})
		}()
		defer func() { _ = watcher.Stop() }()
	}

	fmt.Printf("✓ Warden running (sweep schedule: %s)\n", cfg.Sweep.Schedule)
	if next := scheduler.NextRun(); next != nil {
		fmt.Printf("✓ Next sweep: %s\n", next.Format(time.RFC3339))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	return nil
}
