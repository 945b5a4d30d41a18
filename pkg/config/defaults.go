package config

import "time"

// Default values for configuration fields.
const (
	// Storage defaults
	DefaultStatePath          = "data/warden.db"
	DefaultDetectionsPath     = "data/detections.db"
	DefaultBusyTimeout        = 5 * time.Second
	DefaultCheckpointInterval = 5 * time.Minute

	// Spike detection defaults
	DefaultSpikeMultiplier = 10.0
	DefaultSpikeMinUsage   = int64(1000)
	DefaultSpikeLookback   = 7 * 24 * time.Hour

	// Error rate detection defaults
	DefaultErrorRateThreshold   = 50.0
	DefaultErrorRateMinRequests = int64(100)
	DefaultErrorRateWindow      = time.Hour

	// Pattern detection defaults
	DefaultSQLInjectionThreshold   = 3
	DefaultSQLInjectionWindow      = 5 * time.Minute
	DefaultAuthBruteForceThreshold = 10
	DefaultAuthBruteForceWindow    = 15 * time.Minute
	DefaultAPIKeyCreationThreshold = 5
	DefaultAPIKeyCreationWindow    = 60 * time.Minute

	// Sweep defaults
	DefaultSweepSchedule = "@hourly"

	// Outbox defaults
	DefaultOutboxQueueSize    = 256
	DefaultOutboxMaxAttempts  = 3
	DefaultOutboxRetryBackoff = 250 * time.Millisecond

	// Cache defaults
	DefaultCacheBackend   = "memory"
	DefaultCacheTTL       = 5 * time.Minute
	DefaultRedisKeyPrefix = "warden:project:"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsListenAddress = "127.0.0.1:9464"
	DefaultPrometheusPath       = "/metrics"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Storage defaults
	if cfg.Storage.StatePath == "" {
		cfg.Storage.StatePath = DefaultStatePath
	}
	if cfg.Storage.DetectionsPath == "" {
		cfg.Storage.DetectionsPath = DefaultDetectionsPath
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.Storage.CheckpointInterval == 0 {
		cfg.Storage.CheckpointInterval = DefaultCheckpointInterval
	}

	// Detection defaults
	if cfg.Detection.Spike.Multiplier == 0 {
		cfg.Detection.Spike.Multiplier = DefaultSpikeMultiplier
	}
	if cfg.Detection.Spike.MinUsage == 0 {
		cfg.Detection.Spike.MinUsage = DefaultSpikeMinUsage
	}
	if cfg.Detection.Spike.Lookback == 0 {
		cfg.Detection.Spike.Lookback = DefaultSpikeLookback
	}
	if cfg.Detection.ErrorRate.ThresholdPercent == 0 {
		cfg.Detection.ErrorRate.ThresholdPercent = DefaultErrorRateThreshold
	}
	if cfg.Detection.ErrorRate.MinRequests == 0 {
		cfg.Detection.ErrorRate.MinRequests = DefaultErrorRateMinRequests
	}
	if cfg.Detection.ErrorRate.Window == 0 {
		cfg.Detection.ErrorRate.Window = DefaultErrorRateWindow
	}
	applyPatternDefaults(&cfg.Detection.Patterns.SQLInjection, DefaultSQLInjectionThreshold, DefaultSQLInjectionWindow, true)
	applyPatternDefaults(&cfg.Detection.Patterns.AuthBruteForce, DefaultAuthBruteForceThreshold, DefaultAuthBruteForceWindow, true)
	applyPatternDefaults(&cfg.Detection.Patterns.APIKeyCreation, DefaultAPIKeyCreationThreshold, DefaultAPIKeyCreationWindow, false)

	// Sweep defaults
	if cfg.Sweep.Schedule == "" {
		cfg.Sweep.Schedule = DefaultSweepSchedule
	}

	// Outbox defaults
	if cfg.Outbox.QueueSize == 0 {
		cfg.Outbox.QueueSize = DefaultOutboxQueueSize
	}
	if cfg.Outbox.MaxAttempts == 0 {
		cfg.Outbox.MaxAttempts = DefaultOutboxMaxAttempts
	}
	if cfg.Outbox.RetryBackoff == 0 {
		cfg.Outbox.RetryBackoff = DefaultOutboxRetryBackoff
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
}

// applyPatternDefaults fills a single pattern rule with its defaults.
func applyPatternDefaults(rule *PatternRuleConfig, threshold int, window time.Duration, suspend bool) {
	if rule.Threshold == 0 {
		rule.Threshold = threshold
	}
	if rule.Window == 0 {
		rule.Window = window
	}
	if rule.SuspendOnDetection == nil {
		v := suspend
		rule.SuspendOnDetection = &v
	}
}
