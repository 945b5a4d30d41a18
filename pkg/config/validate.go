package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"nextmavens/warden/pkg/quota"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "sweep.schedule").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateQuotas(&cfg.Quotas)...)
	errs = append(errs, validateDetection(&cfg.Detection)...)
	errs = append(errs, validateSweep(&cfg.Sweep)...)
	errs = append(errs, validateOutbox(&cfg.Outbox)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateStorage validates storage configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	if cfg.StatePath == "" {
		errs = append(errs, FieldError{
			Field:   "storage.state_path",
			Message: "state database path is required",
		})
	}
	if cfg.DetectionsPath == "" {
		errs = append(errs, FieldError{
			Field:   "storage.detections_path",
			Message: "detections database path is required",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.busy_timeout",
			Message: "busy timeout must be positive",
		})
	}
	if cfg.CheckpointInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.checkpoint_interval",
			Message: "checkpoint interval must be positive",
		})
	}

	return errs
}

// validateQuotas validates quota default overrides.
func validateQuotas(cfg *QuotasConfig) []FieldError {
	var errs []FieldError

	for name, value := range cfg.Defaults {
		if !quota.CapType(name).Valid() {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("quotas.defaults.%s", name),
				Message: fmt.Sprintf("unknown cap type %q", name),
			})
			continue
		}
		if value <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("quotas.defaults.%s", name),
				Message: "cap value must be positive",
			})
		}
	}

	return errs
}

// validateDetection validates detector configuration.
func validateDetection(cfg *DetectionConfig) []FieldError {
	var errs []FieldError

	if cfg.Spike.Multiplier <= 1 {
		errs = append(errs, FieldError{
			Field:   "detection.spike.multiplier",
			Message: "multiplier must be greater than 1",
		})
	}
	if cfg.Spike.MinUsage < 0 {
		errs = append(errs, FieldError{
			Field:   "detection.spike.min_usage",
			Message: "minimum usage must not be negative",
		})
	}
	if cfg.Spike.Lookback <= 0 {
		errs = append(errs, FieldError{
			Field:   "detection.spike.lookback",
			Message: "lookback window must be positive",
		})
	}

	if cfg.ErrorRate.ThresholdPercent <= 0 || cfg.ErrorRate.ThresholdPercent > 100 {
		errs = append(errs, FieldError{
			Field:   "detection.error_rate.threshold_percent",
			Message: "threshold must be between 0 and 100",
		})
	}
	if cfg.ErrorRate.MinRequests <= 0 {
		errs = append(errs, FieldError{
			Field:   "detection.error_rate.min_requests",
			Message: "minimum request count must be positive",
		})
	}
	if cfg.ErrorRate.Window <= 0 {
		errs = append(errs, FieldError{
			Field:   "detection.error_rate.window",
			Message: "observation window must be positive",
		})
	}

	errs = append(errs, validatePatternRule("sql_injection", &cfg.Patterns.SQLInjection)...)
	errs = append(errs, validatePatternRule("auth_bruteforce", &cfg.Patterns.AuthBruteForce)...)
	errs = append(errs, validatePatternRule("api_key_creation", &cfg.Patterns.APIKeyCreation)...)

	return errs
}

// validatePatternRule validates a single pattern rule.
func validatePatternRule(name string, rule *PatternRuleConfig) []FieldError {
	var errs []FieldError

	if rule.Threshold < 1 {
		errs = append(errs, FieldError{
			Field:   fmt.Sprintf("detection.patterns.%s.threshold", name),
			Message: "threshold must be at least 1",
		})
	}
	if rule.Window <= 0 {
		errs = append(errs, FieldError{
			Field:   fmt.Sprintf("detection.patterns.%s.window", name),
			Message: "observation window must be positive",
		})
	}

	return errs
}

// validateSweep validates sweep configuration.
func validateSweep(cfg *SweepConfig) []FieldError {
	var errs []FieldError

	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "sweep.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateOutbox validates outbox configuration.
func validateOutbox(cfg *OutboxConfig) []FieldError {
	var errs []FieldError

	if cfg.QueueSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "outbox.queue_size",
			Message: "queue size must be positive",
		})
	}
	if cfg.MaxAttempts <= 0 {
		errs = append(errs, FieldError{
			Field:   "outbox.max_attempts",
			Message: "max attempts must be positive",
		})
	}
	if cfg.RetryBackoff < 0 {
		errs = append(errs, FieldError{
			Field:   "outbox.retry_backoff",
			Message: "retry backoff must not be negative",
		})
	}

	return errs
}

// validateCache validates cache configuration.
func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, FieldError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("unknown backend %q (must be \"memory\" or \"redis\")", cfg.Backend),
		})
	}

	if cfg.Backend == "redis" && cfg.Redis.Addr == "" {
		errs = append(errs, FieldError{
			Field:   "cache.redis.addr",
			Message: "redis address is required when the redis backend is selected",
		})
	}

	if cfg.TTL <= 0 {
		errs = append(errs, FieldError{
			Field:   "cache.ttl",
			Message: "cache TTL must be positive",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.ListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: "listen address is required when metrics are enabled",
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
	}

	return errs
}
