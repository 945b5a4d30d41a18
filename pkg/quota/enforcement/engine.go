package enforcement

import (
	"context"
	"log/slog"

	"nextmavens/warden/pkg/metering"
	"nextmavens/warden/pkg/quota"
)

// Engine evaluates metered usage against effective quota limits.
//
// The engine is fail-open: if the quota lookup or usage lookup hits a
// storage fault, the check allows the operation and logs the error, so a
// transient infrastructure problem never blocks legitimate traffic. The
// suspension path is the opposite (fail-closed); see pkg/suspension.
type Engine struct {
	quotas   *quota.Store
	metering metering.Service
	logger   *slog.Logger
}

// NewEngine creates an enforcement engine over the given quota store and
// metering service.
func NewEngine(quotas *quota.Store, meteringSvc metering.Service) *Engine {
	return &Engine{
		quotas:   quotas,
		metering: meteringSvc,
		logger:   slog.Default().With("component", "quota.enforcement"),
	}
}

// CheckQuota compares a known usage value against the project's effective
// limit for a cap type. Usage strictly below the limit is allowed; usage
// equal to or above the limit is blocked.
func (e *Engine) CheckQuota(ctx context.Context, projectID string, capType quota.CapType, currentUsage float64) quota.CheckResult {
	limit, err := e.quotas.EffectiveLimit(ctx, projectID, capType)
	if err != nil {
		e.logger.Error("quota lookup failed, failing open",
			"project_id", projectID,
			"cap_type", capType,
			"error", err,
		)
		return quota.CheckResult{
			Allowed:      true,
			CapType:      capType,
			CurrentUsage: currentUsage,
		}
	}

	remaining := limit - currentUsage
	if remaining < 0 {
		remaining = 0
	}

	return quota.CheckResult{
		Allowed:      currentUsage < limit,
		CapType:      capType,
		Limit:        limit,
		CurrentUsage: currentUsage,
		Remaining:    remaining,
	}
}

// CanPerformOperation looks up the project's current usage for the cap
// type's metric and runs CheckQuota on it. Usage lookup failures fail open.
func (e *Engine) CanPerformOperation(ctx context.Context, projectID string, capType quota.CapType) quota.CheckResult {
	usage, err := e.metering.CurrentUsage(ctx, projectID, capType.MetricType())
	if err != nil {
		e.logger.Error("usage lookup failed, failing open",
			"project_id", projectID,
			"cap_type", capType,
			"error", err,
		)
		return quota.CheckResult{Allowed: true, CapType: capType}
	}
	return e.CheckQuota(ctx, projectID, capType, usage)
}

// QuotaViolations evaluates every declared cap type for a project and
// returns only the failing ones. Lookup failures for individual cap types
// fail open (the cap is treated as not violated) and are logged.
func (e *Engine) QuotaViolations(ctx context.Context, projectID string) []quota.Violation {
	var violations []quota.Violation
	for _, ct := range quota.CapTypes {
		result := e.CanPerformOperation(ctx, projectID, ct)
		if result.Allowed {
			continue
		}
		violations = append(violations, quota.Violation{
			CapType:      ct,
			Limit:        result.Limit,
			CurrentUsage: result.CurrentUsage,
		})
	}
	return violations
}

// WorstViolation returns the most-exceeded violation by usage/limit ratio.
// Ties keep the earlier cap type in declared order. Returns nil when the
// slice is empty.
func WorstViolation(violations []quota.Violation) *quota.Violation {
	var worst *quota.Violation
	for i := range violations {
		v := &violations[i]
		if worst == nil || v.Ratio() > worst.Ratio() {
			worst = v
		}
	}
	return worst
}
