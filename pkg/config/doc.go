// Package config provides configuration management for warden.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention WARDEN_SECTION_FIELD.
// For example:
//
//   - WARDEN_STORAGE_STATE_PATH overrides storage.state_path
//   - WARDEN_SWEEP_SCHEDULE overrides sweep.schedule
//   - WARDEN_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher observes the configuration file and reloads it on change;
// reloads that fail validation are discarded:
//
//	w, err := config.NewWatcher("config.yaml")
//	if err != nil { ... }
//	go w.Watch(ctx, func(cfg *config.Config) {
//	    detectors.Reconfigure(cfg.Detection)
//	})
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., storage paths)
//   - Range validation (e.g., spike multiplier must exceed 1)
//   - Enum validation (e.g., cache backend, log level)
//   - Cross-field validation (e.g., redis address required for the redis backend)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - detection.spike.multiplier: multiplier must be greater than 1
//	  - cache.redis.addr: redis address is required when the redis backend is selected
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	storage:
//	  state_path: "data/warden.db"
//	  detections_path: "data/detections.db"
//
//	detection:
//	  spike:
//	    multiplier: 10
//	    min_usage: 1000
//
//	sweep:
//	  schedule: "@hourly"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
