package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow
// the naming convention WARDEN_SECTION_FIELD (e.g. WARDEN_SWEEP_SCHEDULE).
// Environment variables always take precedence over file-based
// configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format WARDEN_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Storage overrides
	if val := os.Getenv("WARDEN_STORAGE_STATE_PATH"); val != "" {
		cfg.Storage.StatePath = val
	}
	if val := os.Getenv("WARDEN_STORAGE_DETECTIONS_PATH"); val != "" {
		cfg.Storage.DetectionsPath = val
	}
	if val := os.Getenv("WARDEN_STORAGE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.BusyTimeout = d
		}
	}

	// Detection overrides
	if val := os.Getenv("WARDEN_DETECTION_SPIKE_MULTIPLIER"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Detection.Spike.Multiplier = f
		}
	}
	if val := os.Getenv("WARDEN_DETECTION_SPIKE_MIN_USAGE"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Detection.Spike.MinUsage = i
		}
	}
	if val := os.Getenv("WARDEN_DETECTION_SPIKE_LOOKBACK"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Detection.Spike.Lookback = d
		}
	}
	if val := os.Getenv("WARDEN_DETECTION_ERROR_RATE_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Detection.ErrorRate.ThresholdPercent = f
		}
	}
	if val := os.Getenv("WARDEN_DETECTION_ERROR_RATE_MIN_REQUESTS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Detection.ErrorRate.MinRequests = i
		}
	}
	if val := os.Getenv("WARDEN_DETECTION_ERROR_RATE_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Detection.ErrorRate.Window = d
		}
	}

	// Sweep overrides
	if val := os.Getenv("WARDEN_SWEEP_SCHEDULE"); val != "" {
		cfg.Sweep.Schedule = val
	}
	if val := os.Getenv("WARDEN_SWEEP_ALL_ENVIRONMENTS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Sweep.AllEnvironments = b
		}
	}

	// Outbox overrides
	if val := os.Getenv("WARDEN_OUTBOX_QUEUE_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Outbox.QueueSize = i
		}
	}
	if val := os.Getenv("WARDEN_OUTBOX_MAX_ATTEMPTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Outbox.MaxAttempts = i
		}
	}
	if val := os.Getenv("WARDEN_OUTBOX_RETRY_BACKOFF"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Outbox.RetryBackoff = d
		}
	}

	// Cache overrides
	if val := os.Getenv("WARDEN_CACHE_BACKEND"); val != "" {
		cfg.Cache.Backend = val
	}
	if val := os.Getenv("WARDEN_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if val := os.Getenv("WARDEN_CACHE_REDIS_ADDR"); val != "" {
		cfg.Cache.Redis.Addr = val
	}
	if val := os.Getenv("WARDEN_CACHE_REDIS_PASSWORD"); val != "" {
		cfg.Cache.Redis.Password = val
	}
	if val := os.Getenv("WARDEN_CACHE_REDIS_DB"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Cache.Redis.DB = i
		}
	}

	// Telemetry overrides
	if val := os.Getenv("WARDEN_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("WARDEN_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("WARDEN_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("WARDEN_TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := os.Getenv("WARDEN_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
