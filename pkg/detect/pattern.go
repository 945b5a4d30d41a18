package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventSource supplies qualifying security-event counts for the pattern
// sub-heuristics. It is owned by the platform's request/auth pipeline;
// this core only counts.
type EventSource interface {
	// CountEvents returns how many qualifying events of the given kind the
	// project produced since the given time.
	CountEvents(ctx context.Context, projectID string, kind PatternKind, since time.Time) (int64, error)
}

// ConfigStore persists per-project pattern-config overrides.
type ConfigStore interface {
	// GetOverrides returns the stored override for a project, or nil when
	// the project uses the global defaults.
	GetOverrides(ctx context.Context, projectID string) (*PatternOverrides, error)

	// SetOverrides stores (or replaces) a project's override.
	SetOverrides(ctx context.Context, overrides *PatternOverrides) error

	// DeleteOverrides removes a project's override so defaults apply again.
	DeleteOverrides(ctx context.Context, projectID string) error
}

// PatternDetector runs three independent malicious-behavior heuristics:
// SQL-injection signature frequency, authentication brute force, and rapid
// API-key creation. Each heuristic counts qualifying events inside its own
// rolling window and confirms once the count reaches its threshold.
type PatternDetector struct {
	mu       sync.RWMutex
	defaults PatternConfig
	events   EventSource
	configs  ConfigStore
	results  ResultStore
	logger   *slog.Logger
}

// NewPatternDetector creates a pattern detector. A nil configs store means
// every project uses the defaults.
func NewPatternDetector(defaults PatternConfig, events EventSource, configs ConfigStore, results ResultStore) *PatternDetector {
	return &PatternDetector{
		defaults: defaults,
		events:   events,
		configs:  configs,
		results:  results,
		logger:   slog.Default().With("component", "detect.pattern"),
	}
}

// Reconfigure swaps the global default rules. Per-project overrides are
// unaffected; they merge into the new defaults from the next check.
func (d *PatternDetector) Reconfigure(defaults PatternConfig) {
	d.mu.Lock()
	d.defaults = defaults
	d.mu.Unlock()
}

// globalDefaults returns a snapshot of the current default rules.
func (d *PatternDetector) globalDefaults() PatternConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.defaults
}

// EffectiveConfig resolves the project's pattern configuration: the stored
// override merged field-by-field into the defaults. Lookup failures fall
// back to the defaults and are logged.
func (d *PatternDetector) EffectiveConfig(ctx context.Context, projectID string) PatternConfig {
	defaults := d.globalDefaults()
	if d.configs == nil {
		return defaults
	}
	override, err := d.configs.GetOverrides(ctx, projectID)
	if err != nil {
		d.logger.Error("pattern config lookup failed, using defaults",
			"project_id", projectID,
			"error", err,
		)
		return defaults
	}
	return ResolveConfig(override, defaults)
}

// CheckProject runs all three sub-heuristics for a project and returns
// every confirmed detection, not just the first. A single check may
// produce both warn-only and suspend results for different pattern kinds.
func (d *PatternDetector) CheckProject(ctx context.Context, projectID string) ([]*Result, error) {
	cfg := d.EffectiveConfig(ctx, projectID)
	now := time.Now()

	var results []*Result
	for _, kind := range PatternKinds {
		rule := cfg.Rule(kind)
		if !rule.Enabled {
			continue
		}

		count, err := d.events.CountEvents(ctx, projectID, kind, now.Add(-rule.Window))
		if err != nil {
			return results, fmt.Errorf("counting %s events for project %s: %w", kind, projectID, err)
		}
		if count < rule.MinOccurrences {
			continue
		}

		result := d.buildResult(projectID, kind, rule, count, now)
		// Confirmed detections are always persisted, warn-only ones
		// included, so the audit trail captures trends.
		d.persist(ctx, result)
		results = append(results, result)
	}
	return results, nil
}

// buildResult turns a confirmed pattern match into a Result, deciding the
// action from the rule's suspend flag.
func (d *PatternDetector) buildResult(projectID string, kind PatternKind, rule PatternRule, count int64, now time.Time) *Result {
	severity := SeverityWarning
	action := ActionWarn
	if rule.SuspendOnDetection {
		severity = SeveritySevere
		action = ActionSuspend
	}

	return &Result{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Detector:   KindPattern,
		Subject:    string(kind),
		Confirmed:  true,
		Severity:   severity,
		Action:     action,
		Observed:   float64(count),
		Threshold:  float64(rule.MinOccurrences),
		Details:    fmt.Sprintf("%d %s events within %s (threshold %d)", count, kind, rule.Window, rule.MinOccurrences),
		DetectedAt: now,
	}
}

func (d *PatternDetector) persist(ctx context.Context, result *Result) {
	if d.results == nil {
		return
	}
	if err := d.results.Save(ctx, result); err != nil {
		d.logger.Error("failed to persist detection result",
			"project_id", result.ProjectID,
			"detector", result.Detector,
			"pattern", result.Subject,
			"error", err,
		)
	}
}
