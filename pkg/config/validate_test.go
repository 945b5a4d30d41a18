package config

import (
	"strings"
	"testing"
)

// validConfig returns a configuration that passes validation.
func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidateDefaultsAreValid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("default configuration should validate, got: %v", err)
	}
}

func TestValidateCollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.StatePath = ""
	cfg.Detection.Spike.Multiplier = 1
	cfg.Telemetry.Logging.Level = "verbose"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}

	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(verr.Errors), verr)
	}
	if !strings.Contains(verr.Error(), "storage.state_path") {
		t.Errorf("expected state_path in error, got: %v", verr)
	}
}

func TestValidateQuotaDefaults(t *testing.T) {
	tests := []struct {
		name     string
		defaults map[string]int64
		wantErr  bool
	}{
		{"known cap", map[string]int64{"db_queries_per_day": 10000}, false},
		{"all known caps", map[string]int64{
			"db_queries_per_day":   50000,
			"api_requests_per_day": 100000,
			"storage_mb":           1024,
			"bandwidth_mb_per_day": 5120,
			"realtime_connections": 200,
		}, false},
		{"unknown cap", map[string]int64{"gpu_hours": 10}, true},
		{"zero value", map[string]int64{"storage_mb": 0}, true},
		{"negative value", map[string]int64{"storage_mb": -5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Quotas.Defaults = tt.defaults
			err := Validate(cfg)
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidateErrorRateBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Detection.ErrorRate.ThresholdPercent = 150
	if err := Validate(cfg); err == nil {
		t.Error("expected error for threshold above 100")
	}

	cfg = validConfig()
	cfg.Detection.ErrorRate.ThresholdPercent = 100
	if err := Validate(cfg); err != nil {
		t.Errorf("threshold of exactly 100 should validate, got: %v", err)
	}
}

func TestValidateSweepSchedule(t *testing.T) {
	cfg := validConfig()
	cfg.Sweep.Schedule = "not a cron expression"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for invalid cron expression")
	}

	cfg = validConfig()
	cfg.Sweep.Schedule = ""
	if err := Validate(cfg); err != nil {
		t.Errorf("empty schedule should validate (scheduler disabled), got: %v", err)
	}
}

func TestValidateCacheBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Backend = "memcached"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for unknown cache backend")
	}

	cfg = validConfig()
	cfg.Cache.Backend = "redis"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for redis backend without address")
	}

	cfg.Cache.Redis.Addr = "localhost:6379"
	if err := Validate(cfg); err != nil {
		t.Errorf("redis backend with address should validate, got: %v", err)
	}
}

func TestApplyDefaultsIdempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	first := *cfg
	ApplyDefaults(cfg)

	if cfg.Detection.Spike.Multiplier != first.Detection.Spike.Multiplier {
		t.Error("ApplyDefaults changed spike multiplier on second call")
	}
	if cfg.Sweep.Schedule != first.Sweep.Schedule {
		t.Error("ApplyDefaults changed sweep schedule on second call")
	}
}
