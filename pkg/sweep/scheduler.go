package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the sweep on a cron schedule. The schedule itself is an
// externally configured cron expression; this type only owns the entry
// point, mirroring the collaborator contract where a scheduler host
// invokes the sweep on its interval.
type Scheduler struct {
	orchestrator *Orchestrator
	schedule     string
	cron         *cron.Cron
	mu           sync.Mutex
	logger       *slog.Logger
	running      bool
}

// NewScheduler creates a sweep scheduler.
//
// Common cron expressions:
//   - "@hourly"      - every hour
//   - "*/15 * * * *" - every 15 minutes
//   - "0 * * * *"    - on the hour
func NewScheduler(orchestrator *Orchestrator, schedule string) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		schedule:     schedule,
		cron:         cron.New(),
		logger:       slog.Default().With("component", "sweep.scheduler"),
	}
}

// Start begins scheduled sweeping. An empty schedule disables the
// scheduler (one-shot runs remain available via the orchestrator).
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("sweep scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runSweep executes one scheduled sweep.
func (s *Scheduler) runSweep(ctx context.Context) {
	s.logger.Info("starting scheduled suspension sweep")

	summary := s.orchestrator.Run(ctx)
	if summary.Err != nil {
		s.logger.Error("scheduled sweep failed", "error", summary.Err)
		return
	}

	if summary.Suspended > 0 {
		s.logger.Info("scheduled sweep completed",
			"checked", summary.Checked,
			"suspended", summary.Suspended,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
		)
	} else {
		s.logger.Debug("scheduled sweep completed, no suspensions",
			"checked", summary.Checked,
			"skipped", summary.Skipped,
		)
	}
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // wait for running jobs
		s.running = false
		s.logger.Info("sweep scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep time, or nil when none is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
