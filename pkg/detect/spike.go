package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"nextmavens/warden/pkg/metering"
	"nextmavens/warden/pkg/project"
	"nextmavens/warden/pkg/quota"
)

// spikeMetrics are the daily counters the batch spike check evaluates.
var spikeMetrics = []string{
	quota.CapDBQueriesPerDay.MetricType(),
	quota.CapAPIRequestsPerDay.MetricType(),
	quota.CapBandwidthMBPerDay.MetricType(),
}

// SpikeDetector flags usage far above a project's own recent baseline.
//
// A spike is confirmed only when both conditions hold: usage exceeds
// baseline times the threshold multiplier, and usage clears an absolute
// floor. The floor suppresses noise like a 1-to-10 jump on an idle project.
type SpikeDetector struct {
	mu       sync.RWMutex
	config   SpikeConfig
	metering metering.Service
	projects project.Directory
	results  ResultStore
	logger   *slog.Logger
}

// NewSpikeDetector creates a spike detector. Zero config fields fall back
// to DefaultSpikeConfig values.
func NewSpikeDetector(cfg SpikeConfig, meteringSvc metering.Service, projects project.Directory, results ResultStore) *SpikeDetector {
	def := DefaultSpikeConfig()
	if cfg.ThresholdMultiplier <= 0 {
		cfg.ThresholdMultiplier = def.ThresholdMultiplier
	}
	if cfg.MinUsage <= 0 {
		cfg.MinUsage = def.MinUsage
	}
	if cfg.BaselineLookback <= 0 {
		cfg.BaselineLookback = def.BaselineLookback
	}

	return &SpikeDetector{
		config:   cfg,
		metering: meteringSvc,
		projects: projects,
		results:  results,
		logger:   slog.Default().With("component", "detect.spike"),
	}
}

// Reconfigure swaps the detector settings. Zero fields fall back to
// defaults, same as at construction. Safe to call while checks run; the
// new settings apply from the next check.
func (d *SpikeDetector) Reconfigure(cfg SpikeConfig) {
	def := DefaultSpikeConfig()
	if cfg.ThresholdMultiplier <= 0 {
		cfg.ThresholdMultiplier = def.ThresholdMultiplier
	}
	if cfg.MinUsage <= 0 {
		cfg.MinUsage = def.MinUsage
	}
	if cfg.BaselineLookback <= 0 {
		cfg.BaselineLookback = def.BaselineLookback
	}

	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
}

// cfg returns a snapshot of the current settings.
func (d *SpikeDetector) cfg() SpikeConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// AverageUsage returns the mean of the metric's samples over [start, end).
func (d *SpikeDetector) AverageUsage(ctx context.Context, projectID, metricType string, start, end time.Time) (float64, error) {
	return d.metering.AverageUsage(ctx, projectID, metricType, start, end)
}

// DetectUsageSpike evaluates current usage against the project's baseline
// average over the look-back window. A multiplier of zero uses the
// configured default. Returns nil when no spike is confirmed.
func (d *SpikeDetector) DetectUsageSpike(ctx context.Context, projectID, metricType string, currentUsage, multiplier float64) (*Result, error) {
	cfg := d.cfg()
	if multiplier <= 0 {
		multiplier = cfg.ThresholdMultiplier
	}

	// The absolute floor applies before anything else: below it, no ratio
	// to baseline counts as a spike.
	if currentUsage < cfg.MinUsage {
		return nil, nil
	}

	now := time.Now()
	baseline, err := d.metering.AverageUsage(ctx, projectID, metricType, now.Add(-cfg.BaselineLookback), now)
	if err != nil {
		return nil, fmt.Errorf("baseline lookup for project %s metric %s: %w", projectID, metricType, err)
	}

	// Idle projects have a zero baseline; clamp so the ratio stays finite.
	base := baseline
	if base < 1 {
		base = 1
	}
	ratio := currentUsage / base
	if ratio <= multiplier {
		return nil, nil
	}

	severity, action := tierByRatio(ratio, multiplier)
	result := &Result{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Detector:   KindUsageSpike,
		Subject:    metricType,
		Confirmed:  true,
		Severity:   severity,
		Action:     action,
		Observed:   currentUsage,
		Threshold:  base * multiplier,
		Details:    fmt.Sprintf("usage %.0f is %.1fx the %.0f baseline (threshold %.0fx)", currentUsage, ratio, baseline, multiplier),
		DetectedAt: now,
	}

	d.persist(ctx, result)
	return result, nil
}

// CheckProject runs spike detection over every watched metric for one
// project, returning confirmed results.
func (d *SpikeDetector) CheckProject(ctx context.Context, projectID string) ([]*Result, error) {
	var results []*Result
	for _, metric := range spikeMetrics {
		usage, err := d.metering.CurrentUsage(ctx, projectID, metric)
		if err != nil {
			return results, fmt.Errorf("usage lookup for project %s metric %s: %w", projectID, metric, err)
		}

		result, err := d.DetectUsageSpike(ctx, projectID, metric, usage, 0)
		if err != nil {
			return results, err
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results, nil
}

// CheckAllProjects runs spike detection for every active project,
// aggregating confirmed results. It never suspends anything itself;
// acting on results is the orchestrator's job.
func (d *SpikeDetector) CheckAllProjects(ctx context.Context) ([]*Result, error) {
	projects, err := d.projects.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active projects: %w", err)
	}

	var results []*Result
	for _, p := range projects {
		projectResults, err := d.CheckProject(ctx, p.ID)
		if err != nil {
			d.logger.Error("spike detection failed, skipping project",
				"project_id", p.ID,
				"error", err,
			)
			continue
		}
		results = append(results, projectResults...)
	}
	return results, nil
}

// persist stores a result; storage faults are logged, not propagated,
// because results are history rather than load-bearing state.
func (d *SpikeDetector) persist(ctx context.Context, result *Result) {
	if d.results == nil {
		return
	}
	if err := d.results.Save(ctx, result); err != nil {
		d.logger.Error("failed to persist detection result",
			"project_id", result.ProjectID,
			"detector", result.Detector,
			"error", err,
		)
	}
}

// tierByRatio grades a spike by how far past the ratio threshold it is.
func tierByRatio(ratio, multiplier float64) (Severity, Action) {
	switch {
	case ratio >= 5*multiplier:
		return SeveritySevere, ActionSuspend
	case ratio >= 2*multiplier:
		return SeverityCritical, ActionWarn
	default:
		return SeverityWarning, ActionNone
	}
}
