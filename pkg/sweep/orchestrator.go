package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nextmavens/warden/pkg/detect"
	"nextmavens/warden/pkg/project"
	"nextmavens/warden/pkg/quota/enforcement"
	"nextmavens/warden/pkg/suspension"
)

// Summary reports one sweep run.
type Summary struct {
	// StartedAt is when the sweep began.
	StartedAt time.Time

	// Duration is how long the sweep took.
	Duration time.Duration

	// Checked is how many projects were evaluated.
	Checked int

	// Suspended is how many projects this run newly suspended.
	Suspended int

	// Skipped is how many projects environment policy exempted.
	Skipped int

	// Failed is how many projects hit an error and were passed over.
	Failed int

	// Warnings is how many warn-level detections were recorded.
	Warnings int

	// Records lists the suspensions this run created.
	Records []*suspension.Record

	// Err is set when the sweep could not run at all (for example the
	// project listing failed). Per-project errors only bump Failed.
	Err error
}

// Orchestrator runs the periodic suspension check: every active,
// non-exempt project is evaluated against its quotas and all three
// detectors, and confirmed violations feed the suspension controller.
// Per-project failures are logged and skipped; one broken project never
// aborts the sweep.
type Orchestrator struct {
	projects   project.Directory
	engine     *enforcement.Engine
	spikes     *detect.SpikeDetector
	errorRates *detect.ErrorRateDetector
	patterns   *detect.PatternDetector
	controller *suspension.Controller
	policy     EnvironmentPolicy
	metrics    *Metrics
	logger     *slog.Logger
}

// NewOrchestrator wires a sweep orchestrator. A nil policy defaults to
// ProductionOnlyPolicy; nil metrics record nothing.
func NewOrchestrator(
	projects project.Directory,
	engine *enforcement.Engine,
	spikes *detect.SpikeDetector,
	errorRates *detect.ErrorRateDetector,
	patterns *detect.PatternDetector,
	controller *suspension.Controller,
	policy EnvironmentPolicy,
	metrics *Metrics,
) *Orchestrator {
	if policy == nil {
		policy = ProductionOnlyPolicy{}
	}
	return &Orchestrator{
		projects:   projects,
		engine:     engine,
		spikes:     spikes,
		errorRates: errorRates,
		patterns:   patterns,
		controller: controller,
		policy:     policy,
		metrics:    metrics,
		logger:     slog.Default().With("component", "sweep.orchestrator"),
	}
}

// Run executes one sweep over all active projects.
func (o *Orchestrator) Run(ctx context.Context) *Summary {
	summary := &Summary{StartedAt: time.Now()}
	defer func() {
		summary.Duration = time.Since(summary.StartedAt)
		o.metrics.RecordSweep(summary.Duration.Seconds())
		o.logger.Info("sweep finished",
			"checked", summary.Checked,
			"suspended", summary.Suspended,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			"duration", summary.Duration,
		)
	}()

	projects, err := o.projects.ListActive(ctx)
	if err != nil {
		summary.Err = fmt.Errorf("listing active projects: %w", err)
		o.logger.Error("sweep aborted", "error", summary.Err)
		return summary
	}

	for _, p := range projects {
		if !o.policy.AutoSuspendEnabled(p.Environment) {
			summary.Skipped++
			o.metrics.RecordSkipped()
			continue
		}

		summary.Checked++
		o.metrics.RecordChecked()

		if err := o.checkProject(ctx, p, summary); err != nil {
			summary.Failed++
			o.metrics.RecordFailed()
			o.logger.Error("project sweep failed",
				"project_id", p.ID,
				"error", err,
			)
		}
	}

	return summary
}

// checkProject evaluates one project. Quota violations are checked first;
// when several caps fail at once the most-exceeded one becomes the
// suspension cause. Detectors run afterwards and may still warn (or
// suspend, had quotas passed).
func (o *Orchestrator) checkProject(ctx context.Context, p *project.Project, summary *Summary) error {
	violations := o.engine.QuotaViolations(ctx, p.ID)
	if worst := enforcement.WorstViolation(violations); worst != nil {
		reason := suspension.Reason{
			CapType:       string(worst.CapType),
			CurrentValue:  worst.CurrentUsage,
			LimitExceeded: worst.Limit,
			Details: fmt.Sprintf("usage %.0f exceeded %s cap of %.0f",
				worst.CurrentUsage, worst.CapType, worst.Limit),
		}
		return o.suspend(ctx, p.ID, reason, "cap:"+string(worst.CapType), summary)
	}

	results, err := o.runDetectors(ctx, p.ID, summary)
	if err != nil {
		return err
	}

	for _, r := range results {
		o.metrics.RecordDetection(r.Detector, r.Severity)
		switch r.Action {
		case detect.ActionSuspend:
			reason := suspension.Reason{
				CapType:       r.Subject,
				CurrentValue:  r.Observed,
				LimitExceeded: r.Threshold,
				Details:       r.Details,
			}
			// The project may already have been suspended by an earlier
			// result in this same tick; Suspend is a no-op then.
			if err := o.suspend(ctx, p.ID, reason, string(r.Detector)+":"+r.Subject, summary); err != nil {
				return err
			}
		case detect.ActionWarn:
			summary.Warnings++
			o.logger.Warn("detection warning",
				"project_id", p.ID,
				"detector", r.Detector,
				"subject", r.Subject,
				"details", r.Details,
			)
		}
	}

	return nil
}

// runDetectors runs all three detectors for a project and merges their
// confirmed results.
func (o *Orchestrator) runDetectors(ctx context.Context, projectID string, summary *Summary) ([]*detect.Result, error) {
	var results []*detect.Result

	spikeResults, err := o.spikes.CheckProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	results = append(results, spikeResults...)

	errResult, err := o.errorRates.CheckProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if errResult != nil {
		results = append(results, errResult)
	}

	patternResults, err := o.patterns.CheckProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	results = append(results, patternResults...)

	return results, nil
}

// suspend invokes the controller and updates the summary when a new
// suspension was created.
func (o *Orchestrator) suspend(ctx context.Context, projectID string, reason suspension.Reason, cause string, summary *Summary) error {
	rec, created, err := o.controller.Suspend(ctx, projectID, reason, "", suspension.TypeAutomatic)
	if err != nil {
		return err
	}
	if created {
		summary.Suspended++
		summary.Records = append(summary.Records, rec)
		o.metrics.RecordSuspended(cause)
	}
	return nil
}
