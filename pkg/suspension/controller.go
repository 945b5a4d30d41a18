package suspension

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nextmavens/warden/pkg/project"
)

// Controller is the suspension state machine. A project is either ACTIVE
// (no unresolved record) or SUSPENDED (one unresolved record); Suspend and
// Unsuspend move between the two and are idempotent no-ops when the
// project is already in the target state.
//
// State transitions are fail-closed: a storage fault rolls the transaction
// back and propagates. Side effects (cache invalidation, audit, and
// notification) run through the outbox after the commit and can never
// undo it.
type Controller struct {
	store    Store
	outbox   *Outbox
	projects project.Directory
	logger   *slog.Logger
}

// NewController creates a suspension controller. The outbox may be nil in
// tests that only exercise state transitions.
func NewController(store Store, outbox *Outbox, projects project.Directory) *Controller {
	return &Controller{
		store:    store,
		outbox:   outbox,
		projects: projects,
		logger:   slog.Default().With("component", "suspension.controller"),
	}
}

// Suspend moves a project into the suspended state. If the project is
// already suspended the call is a logged no-op returning the existing
// record with created=false. Otherwise the record insert, history append,
// and status flip commit in one transaction, and side effects are
// enqueued afterwards.
func (c *Controller) Suspend(ctx context.Context, projectID string, reason Reason, notes string, typ Type) (rec *Record, created bool, err error) {
	existing, err := c.store.ActiveRecord(ctx, projectID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		c.logger.Info("suspend requested for already-suspended project",
			"project_id", projectID,
			"existing_record", existing.ID,
		)
		return existing, false, nil
	}

	now := time.Now()
	rec = &Record{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Reason:      reason,
		CapExceeded: reason.CapType,
		SuspendedAt: now,
		Notes:       notes,
		Type:        typ,
	}
	entry := &HistoryEntry{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Action:     ActionSuspended,
		Reason:     reason.String(),
		Notes:      notes,
		OccurredAt: now,
	}

	if err := c.store.CreateSuspension(ctx, rec, entry); err != nil {
		if errors.Is(err, ErrAlreadySuspended) {
			// A concurrent writer won the partial unique index; treat as
			// the same no-op as the pre-check.
			c.logger.Info("lost suspend race, treating as no-op", "project_id", projectID)
			existing, lookupErr := c.store.ActiveRecord(ctx, projectID)
			return existing, false, lookupErr
		}
		return nil, false, err
	}

	c.logger.Info("project suspended",
		"project_id", projectID,
		"cap_exceeded", rec.CapExceeded,
		"type", typ,
	)

	c.enqueueSideEffects(ctx, projectID, ActionSuspended, reason.String(), notes, typ, now)
	return rec, true, nil
}

// Unsuspend lifts a project's suspension. Calling it on an already-active
// project is a no-op returning nil.
func (c *Controller) Unsuspend(ctx context.Context, projectID, notes string) (*Record, error) {
	existing, err := c.store.ActiveRecord(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		c.logger.Info("unsuspend requested for active project", "project_id", projectID)
		return nil, nil
	}

	now := time.Now()
	entry := &HistoryEntry{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Action:     ActionUnsuspended,
		Reason:     existing.Reason.String(),
		Notes:      notes,
		OccurredAt: now,
	}

	resolved, err := c.store.ResolveSuspension(ctx, projectID, now, notes, entry)
	if err != nil {
		if errors.Is(err, ErrNotSuspended) {
			c.logger.Info("lost unsuspend race, treating as no-op", "project_id", projectID)
			return nil, nil
		}
		return nil, err
	}

	c.logger.Info("project unsuspended", "project_id", projectID, "record", resolved.ID)

	c.enqueueSideEffects(ctx, projectID, ActionUnsuspended, resolved.Reason.String(), notes, resolved.Type, now)
	return resolved, nil
}

// IsSuspended reports whether the project currently has an unresolved
// suspension record.
func (c *Controller) IsSuspended(ctx context.Context, projectID string) (bool, error) {
	rec, err := c.store.ActiveRecord(ctx, projectID)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// History returns the project's transition history, oldest first.
func (c *Controller) History(ctx context.Context, projectID string) ([]*HistoryEntry, error) {
	return c.store.History(ctx, projectID)
}

// ListActive returns all currently suspended projects' records.
func (c *Controller) ListActive(ctx context.Context) ([]*Record, error) {
	return c.store.ListActive(ctx)
}

// enqueueSideEffects hands the post-commit work to the outbox. Everything
// here is best effort; the transition has already committed.
func (c *Controller) enqueueSideEffects(ctx context.Context, projectID string, action HistoryAction, reason, notes string, typ Type, at time.Time) {
	if c.outbox == nil {
		return
	}

	c.outbox.Enqueue(&Task{
		Kind:      TaskInvalidateCache,
		ProjectID: projectID,
	})

	c.outbox.Enqueue(&Task{
		Kind:      TaskAudit,
		ProjectID: projectID,
		Audit: AuditEntry{
			ProjectID:  projectID,
			Action:     action,
			Reason:     reason,
			Notes:      notes,
			Type:       typ,
			OccurredAt: at,
		},
	})

	notice := Notice{
		Action: action,
		Reason: reason,
	}
	if c.projects != nil {
		p, err := c.projects.Get(ctx, projectID)
		if err != nil {
			c.logger.Warn("project lookup for notification failed",
				"project_id", projectID,
				"error", err,
			)
			notice.Project = &project.Project{ID: projectID}
		} else {
			notice.Project = p
			if p.OwnerEmail != "" {
				notice.Recipients = []string{p.OwnerEmail}
			}
		}
	} else {
		notice.Project = &project.Project{ID: projectID}
	}

	c.outbox.Enqueue(&Task{
		Kind:      TaskNotify,
		ProjectID: projectID,
		Notice:    notice,
	})
}
