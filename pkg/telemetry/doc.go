// Package telemetry provides observability for warden.
//
// # Components
//
//   - logging: Structured logging built on log/slog, with optional
//     redaction of owner emails and credential-shaped values
//   - metrics: The Prometheus scrape endpoint and liveness probe
//
// Metric definitions live with the packages that own them (the sweep
// package registers its counters and histograms against the default
// registry); the metrics subpackage only serves the endpoint.
//
// # Usage
//
//	logger, err := logging.Setup(logging.Config{
//	    Level:  cfg.Telemetry.Logging.Level,
//	    Format: cfg.Telemetry.Logging.Format,
//	})
//	if err != nil { ... }
//
//	srv := metrics.NewServer(cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
//	srv.Start()
//	defer srv.Shutdown(ctx)
package telemetry
