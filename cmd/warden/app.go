package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"nextmavens/warden/pkg/cache"
	"nextmavens/warden/pkg/config"
	"nextmavens/warden/pkg/detect"
	detectstorage "nextmavens/warden/pkg/detect/storage"
	"nextmavens/warden/pkg/metering"
	"nextmavens/warden/pkg/quota"
	"nextmavens/warden/pkg/quota/enforcement"
	"nextmavens/warden/pkg/storage"
	"nextmavens/warden/pkg/suspension"
	"nextmavens/warden/pkg/sweep"
)

// app holds the wired service components shared by the run and sweep
// commands.
type app struct {
	cfg *config.Config

	state      *storage.SQLiteStore
	detections *detectstorage.SQLiteStore

	metering *metering.MemoryService
	events   *detect.MemoryEventSource

	quotas     *quota.Store
	engine     *enforcement.Engine
	spikes     *detect.SpikeDetector
	errorRates *detect.ErrorRateDetector
	patterns   *detect.PatternDetector

	outbox       *suspension.Outbox
	controller   *suspension.Controller
	orchestrator *sweep.Orchestrator

	closers []func() error
}

// newApp opens the stores and wires the detection and suspension
// pipeline from cfg. Callers must Close the returned app.
func newApp(cfg *config.Config, metrics *sweep.Metrics) (*app, error) {
	a := &app{cfg: cfg}

	state, err := storage.NewSQLiteStoreWithConfig(storage.SQLiteConfig{
		DBPath:           cfg.Storage.StatePath,
		BusyTimeout:      cfg.Storage.BusyTimeout,
		SnapshotInterval: cfg.Storage.CheckpointInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	a.state = state
	a.closers = append(a.closers, state.Close)

	detections, err := detectstorage.NewSQLiteStore(&detectstorage.SQLiteConfig{
		Path:        cfg.Storage.DetectionsPath,
		BusyTimeout: cfg.Storage.BusyTimeout,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("opening detection store: %w", err)
	}
	a.detections = detections
	a.closers = append(a.closers, detections.Close)

	// Usage telemetry and security events arrive through the ingestion
	// API; these in-process sinks are their landing buffers.
	a.metering = metering.NewMemoryService()
	a.events = detect.NewMemoryEventSource()

	a.quotas = quota.NewStoreWithDefaults(state.QuotaRepository(), capOverrides(cfg.Quotas.Defaults))
	a.engine = enforcement.NewEngine(a.quotas, a.metering)

	a.spikes = detect.NewSpikeDetector(spikeConfig(cfg.Detection.Spike), a.metering, state, detections)
	a.errorRates = detect.NewErrorRateDetector(errorRateConfig(cfg.Detection.ErrorRate), a.metering, detections)
	a.patterns = detect.NewPatternDetector(patternConfig(cfg.Detection.Patterns), a.events, state, detections)

	projectCache, err := buildCache(cfg.Cache)
	if err != nil {
		a.close()
		return nil, err
	}

	a.outbox = suspension.NewOutbox(suspension.OutboxConfig{
		QueueSize:    cfg.Outbox.QueueSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		RetryBackoff: cfg.Outbox.RetryBackoff,
	}, projectCache, suspension.NewLogAuditLog(), suspension.NewLogNotifier())
	a.outbox.Start()
	a.closers = append(a.closers, func() error {
		a.outbox.Stop()
		return nil
	})

	a.controller = suspension.NewController(state.SuspensionStore(), a.outbox, state)

	var policy sweep.EnvironmentPolicy = sweep.ProductionOnlyPolicy{}
	if cfg.Sweep.AllEnvironments {
		policy = sweep.AllowAllPolicy{}
	}

	a.orchestrator = sweep.NewOrchestrator(
		state,
		a.engine,
		a.spikes,
		a.errorRates,
		a.patterns,
		a.controller,
		policy,
		metrics,
	)

	return a, nil
}

// close releases everything opened so far, last first.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

// Close shuts the app down.
func (a *app) Close() {
	a.close()
}

// openStateStore opens just the state database, for admin commands that
// do not need the full pipeline.
func openStateStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	state, err := storage.NewSQLiteStoreWithConfig(storage.SQLiteConfig{
		DBPath:           cfg.Storage.StatePath,
		BusyTimeout:      cfg.Storage.BusyTimeout,
		SnapshotInterval: cfg.Storage.CheckpointInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	return state, nil
}

// buildCache selects the project snapshot cache backend.
func buildCache(cfg config.CacheConfig) (cache.ProjectCache, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return cache.NewRedisCache(client,
			cache.WithPrefix(cfg.Redis.KeyPrefix),
			cache.WithTTL(cfg.TTL),
		), nil
	case "memory", "":
		return cache.NewMemoryCache(cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

// capOverrides converts config cap overrides to quota types.
func capOverrides(defaults map[string]int64) map[quota.CapType]float64 {
	if len(defaults) == 0 {
		return nil
	}
	out := make(map[quota.CapType]float64, len(defaults))
	for name, value := range defaults {
		out[quota.CapType(name)] = float64(value)
	}
	return out
}

// spikeConfig converts the config section to detector settings.
func spikeConfig(cfg config.SpikeConfig) detect.SpikeConfig {
	return detect.SpikeConfig{
		ThresholdMultiplier: cfg.Multiplier,
		MinUsage:            float64(cfg.MinUsage),
		BaselineLookback:    cfg.Lookback,
	}
}

// errorRateConfig converts the config section to detector settings.
func errorRateConfig(cfg config.ErrorRateConfig) detect.ErrorRateConfig {
	return detect.ErrorRateConfig{
		ThresholdPercent: cfg.ThresholdPercent,
		MinRequests:      cfg.MinRequests,
		Window:           cfg.Window,
	}
}

// patternConfig converts the config section to detector settings.
func patternConfig(cfg config.PatternsConfig) detect.PatternConfig {
	return detect.PatternConfig{
		SQLInjection:   patternRule(cfg.SQLInjection),
		AuthBruteForce: patternRule(cfg.AuthBruteForce),
		APIKeyCreation: patternRule(cfg.APIKeyCreation),
	}
}

func patternRule(cfg config.PatternRuleConfig) detect.PatternRule {
	suspend := false
	if cfg.SuspendOnDetection != nil {
		suspend = *cfg.SuspendOnDetection
	}
	return detect.PatternRule{
		Enabled:            true,
		MinOccurrences:     int64(cfg.Threshold),
		Window:             cfg.Window,
		SuspendOnDetection: suspend,
	}
}
