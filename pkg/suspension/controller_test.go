package suspension_test

import (
	"context"
	"testing"
	"time"

	"nextmavens/warden/pkg/cache"
	"nextmavens/warden/pkg/project"
	"nextmavens/warden/pkg/storage"
	"nextmavens/warden/pkg/suspension"
)

func testReason() suspension.Reason {
	return suspension.Reason{
		CapType:       "db_queries_per_day",
		CurrentValue:  60000,
		LimitExceeded: 50000,
		Details:       "usage 60000 exceeded db_queries_per_day cap of 50000",
	}
}

func newTestController(t *testing.T) (*suspension.Controller, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	ctrl := suspension.NewController(store.SuspensionStore(), nil, store)
	return ctrl, store
}

func TestSuspendCreatesRecordAndHistory(t *testing.T) {
	ctrl, store := newTestController(t)
	ctx := context.Background()

	rec, created, err := ctrl.Suspend(ctx, "proj-1", testReason(), "sweep", suspension.TypeAutomatic)
	if err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if !created {
		t.Error("expected created=true for first suspension")
	}
	if rec == nil || rec.ProjectID != "proj-1" {
		t.Fatalf("bad record: %+v", rec)
	}
	if rec.CapExceeded != "db_queries_per_day" {
		t.Errorf("CapExceeded: %s", rec.CapExceeded)
	}
	if rec.Type != suspension.TypeAutomatic {
		t.Errorf("Type: %s", rec.Type)
	}

	history, err := store.History(ctx, "proj-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if history[0].Action != suspension.ActionSuspended {
		t.Errorf("history action: %s", history[0].Action)
	}
}

func TestSuspendIdempotent(t *testing.T) {
	ctrl, store := newTestController(t)
	ctx := context.Background()

	first, created, err := ctrl.Suspend(ctx, "proj-1", testReason(), "", suspension.TypeAutomatic)
	if err != nil || !created {
		t.Fatalf("first Suspend: created=%v err=%v", created, err)
	}

	second, created, err := ctrl.Suspend(ctx, "proj-1", testReason(), "", suspension.TypeAutomatic)
	if err != nil {
		t.Fatalf("second Suspend: %v", err)
	}
	if created {
		t.Error("second suspend must be a no-op")
	}
	if second.ID != first.ID {
		t.Errorf("no-op should return the existing record: %s vs %s", second.ID, first.ID)
	}

	// The no-op leaves exactly one unresolved record and one history entry.
	n, err := store.CountUnresolved(ctx, "proj-1")
	if err != nil {
		t.Fatalf("CountUnresolved: %v", err)
	}
	if n != 1 {
		t.Errorf("unresolved records: expected 1, got %d", n)
	}
	history, _ := store.History(ctx, "proj-1")
	if len(history) != 1 {
		t.Errorf("history entries: expected 1, got %d", len(history))
	}
}

func TestUnsuspendLiftsAndAppendsHistory(t *testing.T) {
	ctrl, store := newTestController(t)
	ctx := context.Background()

	if _, _, err := ctrl.Suspend(ctx, "proj-1", testReason(), "", suspension.TypeManual); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	resolved, err := ctrl.Unsuspend(ctx, "proj-1", "reviewed")
	if err != nil {
		t.Fatalf("Unsuspend: %v", err)
	}
	if resolved == nil || !resolved.Resolved() {
		t.Fatalf("expected a resolved record, got %+v", resolved)
	}

	suspended, err := ctrl.IsSuspended(ctx, "proj-1")
	if err != nil {
		t.Fatalf("IsSuspended: %v", err)
	}
	if suspended {
		t.Error("project should be active after unsuspend")
	}

	history, _ := store.History(ctx, "proj-1")
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[1].Action != suspension.ActionUnsuspended {
		t.Errorf("second entry action: %s", history[1].Action)
	}
}

func TestUnsuspendActiveProjectIsNoOp(t *testing.T) {
	ctrl, store := newTestController(t)
	ctx := context.Background()

	resolved, err := ctrl.Unsuspend(ctx, "never-suspended", "")
	if err != nil {
		t.Fatalf("Unsuspend: %v", err)
	}
	if resolved != nil {
		t.Errorf("expected nil record, got %+v", resolved)
	}
	history, _ := store.History(ctx, "never-suspended")
	if len(history) != 0 {
		t.Errorf("no-op must not append history, got %d entries", len(history))
	}
}

func TestResuspendAfterUnsuspend(t *testing.T) {
	ctrl, store := newTestController(t)
	ctx := context.Background()

	if _, _, err := ctrl.Suspend(ctx, "proj-1", testReason(), "", suspension.TypeAutomatic); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if _, err := ctrl.Unsuspend(ctx, "proj-1", ""); err != nil {
		t.Fatalf("Unsuspend: %v", err)
	}

	_, created, err := ctrl.Suspend(ctx, "proj-1", testReason(), "", suspension.TypeAutomatic)
	if err != nil {
		t.Fatalf("re-Suspend: %v", err)
	}
	if !created {
		t.Error("resolved records must not block a new suspension")
	}

	n, _ := store.CountUnresolved(ctx, "proj-1")
	if n != 1 {
		t.Errorf("unresolved records: expected 1, got %d", n)
	}
	history, _ := store.History(ctx, "proj-1")
	if len(history) != 3 {
		t.Errorf("history entries: expected 3, got %d", len(history))
	}
}

func TestSuspendFlipsProjectStatus(t *testing.T) {
	ctrl, store := newTestController(t)
	ctx := context.Background()

	if err := store.UpsertProject(ctx, &project.Project{ID: "proj-1", Name: "One"}); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}

	if _, _, err := ctrl.Suspend(ctx, "proj-1", testReason(), "", suspension.TypeAutomatic); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	p, err := store.Get(ctx, "proj-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Status != project.StatusSuspended {
		t.Errorf("status after suspend: %s", p.Status)
	}

	if _, err := ctrl.Unsuspend(ctx, "proj-1", ""); err != nil {
		t.Fatalf("Unsuspend: %v", err)
	}
	p, _ = store.Get(ctx, "proj-1")
	if p.Status != project.StatusActive {
		t.Errorf("status after unsuspend: %s", p.Status)
	}
}

func TestSuspendEnqueuesSideEffects(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	if err := store.UpsertProject(ctx, &project.Project{
		ID:         "proj-1",
		Name:       "One",
		OwnerEmail: "owner@example.com",
	}); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}

	projectCache := cache.NewMemoryCache(time.Minute)
	if err := projectCache.Set(ctx, &project.Project{ID: "proj-1", Status: project.StatusActive}); err != nil {
		t.Fatalf("cache Set: %v", err)
	}

	audit := suspension.NewMemoryAuditLog()
	notifier := suspension.NewMemoryNotifier()
	outbox := suspension.NewOutbox(suspension.OutboxConfig{}, projectCache, audit, notifier)
	outbox.Start()
	defer outbox.Stop()

	ctrl := suspension.NewController(store.SuspensionStore(), outbox, store)
	if _, _, err := ctrl.Suspend(ctx, "proj-1", testReason(), "", suspension.TypeAutomatic); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	if !outbox.Drain(2 * time.Second) {
		t.Fatal("outbox did not drain")
	}

	// Stale cached snapshot is gone.
	cached, err := projectCache.Get(ctx, "proj-1")
	if err != nil {
		t.Fatalf("cache Get: %v", err)
	}
	if cached != nil {
		t.Error("cache entry should be invalidated after suspension")
	}

	entries := audit.Entries()
	if len(entries) != 1 {
		t.Fatalf("audit entries: expected 1, got %d", len(entries))
	}
	if entries[0].Action != suspension.ActionSuspended {
		t.Errorf("audit action: %s", entries[0].Action)
	}

	notices := notifier.Notices()
	if len(notices) != 1 {
		t.Fatalf("notices: expected 1, got %d", len(notices))
	}
	if len(notices[0].Recipients) != 1 || notices[0].Recipients[0] != "owner@example.com" {
		t.Errorf("recipients: %v", notices[0].Recipients)
	}
}
