package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"nextmavens/warden/pkg/metering"
)

// ErrorRateDetector flags projects whose ratio of failed to total requests
// is abnormally high.
//
// The request-count floor prevents tiny samples from confirming: one
// failed request out of one is a 100% error rate and still not a signal.
type ErrorRateDetector struct {
	mu       sync.RWMutex
	config   ErrorRateConfig
	metering metering.Service
	results  ResultStore
	logger   *slog.Logger
}

// NewErrorRateDetector creates an error-rate detector. Zero config fields
// fall back to DefaultErrorRateConfig values.
func NewErrorRateDetector(cfg ErrorRateConfig, meteringSvc metering.Service, results ResultStore) *ErrorRateDetector {
	def := DefaultErrorRateConfig()
	if cfg.ThresholdPercent <= 0 {
		cfg.ThresholdPercent = def.ThresholdPercent
	}
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}

	return &ErrorRateDetector{
		config:   cfg,
		metering: meteringSvc,
		results:  results,
		logger:   slog.Default().With("component", "detect.errorrate"),
	}
}

// Reconfigure swaps the detector settings. Zero fields fall back to
// defaults, same as at construction. The new settings apply from the
// next check.
func (d *ErrorRateDetector) Reconfigure(cfg ErrorRateConfig) {
	def := DefaultErrorRateConfig()
	if cfg.ThresholdPercent <= 0 {
		cfg.ThresholdPercent = def.ThresholdPercent
	}
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}

	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
}

// cfg returns a snapshot of the current settings.
func (d *ErrorRateDetector) cfg() ErrorRateConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// ErrorRate returns errors/total for the project over [start, end) as a
// percentage. A window with no requests has a zero rate.
func (d *ErrorRateDetector) ErrorRate(ctx context.Context, projectID string, start, end time.Time) (float64, error) {
	total, errCount, err := d.metering.RequestCounts(ctx, projectID, start, end)
	if err != nil {
		return 0, fmt.Errorf("request counts for project %s: %w", projectID, err)
	}
	return ratePercent(total, errCount), nil
}

// DetectHighErrorRate evaluates known request counts. A threshold of zero
// uses the configured default. Returns nil when no detection is confirmed.
func (d *ErrorRateDetector) DetectHighErrorRate(ctx context.Context, projectID string, totalRequests, errorCount int64, thresholdPercent float64) (*Result, error) {
	cfg := d.cfg()
	if thresholdPercent <= 0 {
		thresholdPercent = cfg.ThresholdPercent
	}

	if totalRequests < cfg.MinRequests {
		return nil, nil
	}

	rate := ratePercent(totalRequests, errorCount)
	if rate < thresholdPercent {
		return nil, nil
	}

	severity, action := tierByErrorRate(rate, thresholdPercent)
	result := &Result{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Detector:   KindErrorRate,
		Subject:    "requests",
		Confirmed:  true,
		Severity:   severity,
		Action:     action,
		Observed:   rate,
		Threshold:  thresholdPercent,
		Details:    fmt.Sprintf("%d of %d requests failed (%.1f%%, threshold %.1f%%)", errorCount, totalRequests, rate, thresholdPercent),
		DetectedAt: time.Now(),
	}

	d.persist(ctx, result)
	return result, nil
}

// CheckProject looks up the project's request counts over the configured
// window and evaluates them.
func (d *ErrorRateDetector) CheckProject(ctx context.Context, projectID string) (*Result, error) {
	now := time.Now()
	total, errCount, err := d.metering.RequestCounts(ctx, projectID, now.Add(-d.cfg().Window), now)
	if err != nil {
		return nil, fmt.Errorf("request counts for project %s: %w", projectID, err)
	}
	return d.DetectHighErrorRate(ctx, projectID, total, errCount, 0)
}

func (d *ErrorRateDetector) persist(ctx context.Context, result *Result) {
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

// ratePercent computes errors/total as a percentage, guarding the
// zero-request case.
func ratePercent(total, errors int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(errors) / float64(total) * 100
}

// tierByErrorRate grades a confirmed detection by how far past the
// threshold the rate is. Anything at or above 95% is severe outright.
func tierByErrorRate(rate, threshold float64) (Severity, Action) {
	switch {
	case rate >= 95 || rate >= threshold*1.8:
		return SeveritySevere, ActionSuspend
	case rate >= threshold*1.5:
		return SeverityCritical, ActionWarn
	default:
		return SeverityWarning, ActionNone
	}
}
