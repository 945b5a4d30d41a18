package config

import "time"

// Config is the root configuration for the warden service.
// It is loaded from a YAML file, filled with defaults, optionally
// overridden by environment variables, and validated before use.
type Config struct {
	// Storage configures the SQLite databases.
	Storage StorageConfig `yaml:"storage"`

	// Quotas configures default cap values applied to new projects.
	Quotas QuotasConfig `yaml:"quotas"`

	// Detection configures the anomaly detectors.
	Detection DetectionConfig `yaml:"detection"`

	// Sweep configures the periodic suspension sweep.
	Sweep SweepConfig `yaml:"sweep"`

	// Outbox configures side-effect delivery for suspension events.
	Outbox OutboxConfig `yaml:"outbox"`

	// Cache configures the project snapshot cache.
	Cache CacheConfig `yaml:"cache"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig configures the persistent stores.
type StorageConfig struct {
	// StatePath is the SQLite database holding projects, quotas,
	// suspensions, and pattern configuration.
	// Default: "data/warden.db"
	StatePath string `yaml:"state_path"`

	// DetectionsPath is the SQLite database holding detection results.
	// Default: "data/detections.db"
	DetectionsPath string `yaml:"detections_path"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// QuotasConfig configures project quota defaults.
type QuotasConfig struct {
	// Defaults overrides the built-in default cap values, keyed by cap
	// type (e.g. "db_queries_per_day"). Unknown cap types are rejected
	// during validation.
	Defaults map[string]int64 `yaml:"defaults"`
}

// DetectionConfig configures the three anomaly detectors.
type DetectionConfig struct {
	Spike     SpikeConfig     `yaml:"spike"`
	ErrorRate ErrorRateConfig `yaml:"error_rate"`
	Patterns  PatternsConfig  `yaml:"patterns"`
}

// SpikeConfig configures usage spike detection.
type SpikeConfig struct {
	// Multiplier is the baseline multiple that counts as a spike.
	// Default: 10
	Multiplier float64 `yaml:"multiplier"`

	// MinUsage is the floor below which spike detection is skipped.
	// Default: 1000
	MinUsage int64 `yaml:"min_usage"`

	// Lookback is the baseline averaging window.
	// Default: 168h (7 days)
	Lookback time.Duration `yaml:"lookback"`
}

// ErrorRateConfig configures error rate detection.
type ErrorRateConfig struct {
	// ThresholdPercent is the error rate that counts as anomalous.
	// Default: 50
	ThresholdPercent float64 `yaml:"threshold_percent"`

	// MinRequests is the request floor below which detection is skipped.
	// Default: 100
	MinRequests int64 `yaml:"min_requests"`

	// Window is the observation window.
	// Default: 1h
	Window time.Duration `yaml:"window"`
}

// PatternsConfig configures default suspicious pattern rules. Per-project
// overrides live in the state store, not in this file.
type PatternsConfig struct {
	SQLInjection   PatternRuleConfig `yaml:"sql_injection"`
	AuthBruteForce PatternRuleConfig `yaml:"auth_bruteforce"`
	APIKeyCreation PatternRuleConfig `yaml:"api_key_creation"`
}

// PatternRuleConfig configures a single pattern rule.
type PatternRuleConfig struct {
	// Threshold is the occurrence count that confirms the pattern.
	Threshold int `yaml:"threshold"`

	// Window is the observation window.
	Window time.Duration `yaml:"window"`

	// SuspendOnDetection controls whether a confirmed detection
	// suspends the project or only warns. Pointer so an absent key
	// keeps the per-rule default.
	SuspendOnDetection *bool `yaml:"suspend_on_detection"`
}

// SweepConfig configures the periodic sweep.
type SweepConfig struct {
	// Schedule is a standard cron expression. Empty disables the
	// scheduler; one-shot sweeps remain available from the CLI.
	// Default: "@hourly"
	Schedule string `yaml:"schedule"`

	// AllEnvironments suspends projects in every environment when true.
	// By default only production projects are auto-suspended.
	AllEnvironments bool `yaml:"all_environments"`
}

// OutboxConfig configures suspension side-effect delivery.
type OutboxConfig struct {
	// QueueSize is the bounded task queue capacity.
	// Default: 256
	QueueSize int `yaml:"queue_size"`

	// MaxAttempts is the per-task delivery budget.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// RetryBackoff is the delay between delivery attempts.
	// Default: 250ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// CacheConfig configures the project snapshot cache.
type CacheConfig struct {
	// Backend selects the cache implementation: "memory" or "redis".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// TTL is the snapshot time-to-live.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`

	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is one of json, text.
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled controls whether the metrics listener starts.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the metrics HTTP listen address.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
