package sweep_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"nextmavens/warden/pkg/detect"
	"nextmavens/warden/pkg/metering"
	"nextmavens/warden/pkg/project"
	"nextmavens/warden/pkg/quota"
	"nextmavens/warden/pkg/quota/enforcement"
	"nextmavens/warden/pkg/storage"
	"nextmavens/warden/pkg/suspension"
	"nextmavens/warden/pkg/sweep"
)

type fixture struct {
	store      *storage.MemoryStore
	metering   *metering.MemoryService
	events     *detect.MemoryEventSource
	quotas     *quota.Store
	controller *suspension.Controller
}

func newFixture(t *testing.T, policy sweep.EnvironmentPolicy) (*sweep.Orchestrator, *fixture) {
	t.Helper()

	f := &fixture{
		store:    storage.NewMemoryStore(),
		metering: metering.NewMemoryService(),
		events:   detect.NewMemoryEventSource(),
	}
	f.quotas = quota.NewStore(f.store.QuotaRepository())
	f.controller = suspension.NewController(f.store.SuspensionStore(), nil, f.store)

	engine := enforcement.NewEngine(f.quotas, f.metering)
	spikes := detect.NewSpikeDetector(detect.SpikeConfig{}, f.metering, f.store, nil)
	errorRates := detect.NewErrorRateDetector(detect.ErrorRateConfig{}, f.metering, nil)
	patterns := detect.NewPatternDetector(detect.DefaultPatternConfig(), f.events, f.store, nil)

	orchestrator := sweep.NewOrchestrator(
		f.store, engine, spikes, errorRates, patterns, f.controller, policy, nil,
	)
	return orchestrator, f
}

func addProject(t *testing.T, f *fixture, id string, env project.Environment) {
	t.Helper()
	err := f.store.UpsertProject(context.Background(), &project.Project{
		ID:          id,
		Name:        id,
		Environment: env,
	})
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
}

func TestSweepSuspendsOnCapViolation(t *testing.T) {
	orchestrator, f := newFixture(t, sweep.AllowAllPolicy{})
	ctx := context.Background()

	addProject(t, f, "proj-1", project.EnvProduction)
	if err := f.quotas.Set(ctx, "proj-1", quota.CapDBQueriesPerDay, 10000); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// Usage equal to the cap counts as a violation.
	f.metering.SetCurrentUsage("proj-1", quota.CapDBQueriesPerDay.MetricType(), 10000)

	summary := orchestrator.Run(ctx)
	if summary.Err != nil {
		t.Fatalf("Run: %v", summary.Err)
	}
	if summary.Checked != 1 || summary.Suspended != 1 {
		t.Fatalf("checked=%d suspended=%d", summary.Checked, summary.Suspended)
	}

	rec, err := f.store.ActiveRecord(ctx, "proj-1")
	if err != nil {
		t.Fatalf("ActiveRecord: %v", err)
	}
	if rec == nil {
		t.Fatal("expected an active suspension record")
	}
	if rec.CapExceeded != string(quota.CapDBQueriesPerDay) {
		t.Errorf("CapExceeded: %s", rec.CapExceeded)
	}
	if rec.Type != suspension.TypeAutomatic {
		t.Errorf("Type: %s", rec.Type)
	}
	if rec.Reason.CurrentValue != 10000 || rec.Reason.LimitExceeded != 10000 {
		t.Errorf("reason values: %+v", rec.Reason)
	}
}

func TestSweepSecondRunCreatesNoNewSuspensions(t *testing.T) {
	orchestrator, f := newFixture(t, sweep.AllowAllPolicy{})
	ctx := context.Background()

	addProject(t, f, "proj-1", project.EnvProduction)
	f.metering.SetCurrentUsage("proj-1", quota.CapDBQueriesPerDay.MetricType(), 1e9)

	first := orchestrator.Run(ctx)
	if first.Suspended != 1 {
		t.Fatalf("first run suspended=%d", first.Suspended)
	}

	// The suspended project drops out of the active roster, so the second
	// run has nothing to do.
	second := orchestrator.Run(ctx)
	if second.Suspended != 0 {
		t.Errorf("second run suspended=%d, expected 0", second.Suspended)
	}

	n, _ := f.store.CountUnresolved(ctx, "proj-1")
	if n != 1 {
		t.Errorf("unresolved records: expected 1, got %d", n)
	}
}

func TestSweepPicksWorstViolation(t *testing.T) {
	orchestrator, f := newFixture(t, sweep.AllowAllPolicy{})
	ctx := context.Background()

	addProject(t, f, "proj-1", project.EnvProduction)
	if err := f.quotas.Set(ctx, "proj-1", quota.CapDBQueriesPerDay, 1000); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := f.quotas.Set(ctx, "proj-1", quota.CapStorageMB, 100); err != nil {
		t.Fatalf("Set: %v", err)
	}
	f.metering.SetCurrentUsage("proj-1", quota.CapDBQueriesPerDay.MetricType(), 1500) // 1.5x
	f.metering.SetCurrentUsage("proj-1", quota.CapStorageMB.MetricType(), 500)        // 5x

	summary := orchestrator.Run(ctx)
	if summary.Suspended != 1 {
		t.Fatalf("suspended=%d", summary.Suspended)
	}

	rec, _ := f.store.ActiveRecord(ctx, "proj-1")
	if rec.CapExceeded != string(quota.CapStorageMB) {
		t.Errorf("expected the most-exceeded cap, got %s", rec.CapExceeded)
	}
}

func TestSweepSkipsNonProductionUnderDefaultPolicy(t *testing.T) {
	orchestrator, f := newFixture(t, sweep.ProductionOnlyPolicy{})
	ctx := context.Background()

	addProject(t, f, "staging-1", project.EnvStaging)
	addProject(t, f, "dev-1", project.EnvDevelopment)
	addProject(t, f, "prod-1", project.EnvProduction)
	f.metering.SetCurrentUsage("staging-1", quota.CapDBQueriesPerDay.MetricType(), 1e9)
	f.metering.SetCurrentUsage("prod-1", quota.CapDBQueriesPerDay.MetricType(), 1e9)

	summary := orchestrator.Run(ctx)
	if summary.Skipped != 2 {
		t.Errorf("skipped=%d, expected 2", summary.Skipped)
	}
	if summary.Checked != 1 {
		t.Errorf("checked=%d, expected 1", summary.Checked)
	}
	if summary.Suspended != 1 {
		t.Errorf("suspended=%d, expected 1", summary.Suspended)
	}

	if rec, _ := f.store.ActiveRecord(ctx, "staging-1"); rec != nil {
		t.Error("staging project must not be auto-suspended")
	}
	if rec, _ := f.store.ActiveRecord(ctx, "prod-1"); rec == nil {
		t.Error("production project should be suspended")
	}

	// Exemption only gates the sweep; manual suspension still works.
	_, created, err := f.controller.Suspend(ctx, "staging-1", suspension.Reason{
		Details: "manual suspension",
	}, "", suspension.TypeManual)
	if err != nil {
		t.Fatalf("manual Suspend: %v", err)
	}
	if !created {
		t.Error("manual suspension of an exempt project should succeed")
	}
}

func TestSweepWarnsWithoutSuspending(t *testing.T) {
	orchestrator, f := newFixture(t, sweep.AllowAllPolicy{})
	ctx := context.Background()

	addProject(t, f, "proj-1", project.EnvProduction)
	// Six keys in the last half hour: confirms api_key_creation, which
	// warns by default.
	now := time.Now()
	for i := 0; i < 6; i++ {
		f.events.AddEvent("proj-1", detect.PatternAPIKeyCreation, now.Add(-time.Duration(i)*time.Minute))
	}

	summary := orchestrator.Run(ctx)
	if summary.Suspended != 0 {
		t.Errorf("warn-only detection suspended a project: %d", summary.Suspended)
	}
	if summary.Warnings != 1 {
		t.Errorf("warnings=%d, expected 1", summary.Warnings)
	}
}

func TestSweepSuspendsOnPatternDetection(t *testing.T) {
	orchestrator, f := newFixture(t, sweep.AllowAllPolicy{})
	ctx := context.Background()

	addProject(t, f, "proj-1", project.EnvProduction)
	now := time.Now()
	for i := 0; i < 15; i++ {
		f.events.AddEvent("proj-1", detect.PatternAuthBruteForce, now.Add(-time.Duration(i)*30*time.Second))
	}

	summary := orchestrator.Run(ctx)
	if summary.Suspended != 1 {
		t.Fatalf("suspended=%d", summary.Suspended)
	}

	rec, _ := f.store.ActiveRecord(ctx, "proj-1")
	if rec.CapExceeded != string(detect.PatternAuthBruteForce) {
		t.Errorf("expected pattern kind as cause, got %s", rec.CapExceeded)
	}
}

// brokenEvents fails event counts for one project only.
type brokenEvents struct {
	inner   *detect.MemoryEventSource
	failFor string
}

func (b *brokenEvents) CountEvents(ctx context.Context, projectID string, kind detect.PatternKind, since time.Time) (int64, error) {
	if projectID == b.failFor {
		return 0, errors.New("event store unreachable")
	}
	return b.inner.CountEvents(ctx, projectID, kind, since)
}

func TestSweepToleratesPerProjectFailures(t *testing.T) {
	f := &fixture{
		store:    storage.NewMemoryStore(),
		metering: metering.NewMemoryService(),
		events:   detect.NewMemoryEventSource(),
	}
	f.quotas = quota.NewStore(f.store.QuotaRepository())
	f.controller = suspension.NewController(f.store.SuspensionStore(), nil, f.store)

	engine := enforcement.NewEngine(f.quotas, f.metering)
	spikes := detect.NewSpikeDetector(detect.SpikeConfig{}, f.metering, f.store, nil)
	errorRates := detect.NewErrorRateDetector(detect.ErrorRateConfig{}, f.metering, nil)
	patterns := detect.NewPatternDetector(detect.DefaultPatternConfig(),
		&brokenEvents{inner: f.events, failFor: "proj-broken"}, f.store, nil)

	orchestrator := sweep.NewOrchestrator(
		f.store, engine, spikes, errorRates, patterns, f.controller, sweep.AllowAllPolicy{}, nil,
	)

	ctx := context.Background()
	addProject(t, f, "proj-broken", project.EnvProduction)
	addProject(t, f, "proj-ok", project.EnvProduction)
	f.metering.SetCurrentUsage("proj-ok", quota.CapDBQueriesPerDay.MetricType(), 1e9)

	summary := orchestrator.Run(ctx)
	if summary.Failed != 1 {
		t.Errorf("failed=%d, expected 1", summary.Failed)
	}
	// The broken project did not abort the sweep; the healthy one was
	// still suspended.
	if summary.Suspended != 1 {
		t.Errorf("suspended=%d, expected 1", summary.Suspended)
	}
	if rec, _ := f.store.ActiveRecord(ctx, "proj-ok"); rec == nil {
		t.Error("healthy project should still be processed")
	}
}

func TestSweepEmptyRoster(t *testing.T) {
	orchestrator, _ := newFixture(t, sweep.AllowAllPolicy{})

	summary := orchestrator.Run(context.Background())
	if summary.Err != nil {
		t.Fatalf("Run: %v", summary.Err)
	}
	if summary.Checked != 0 || summary.Suspended != 0 {
		t.Errorf("empty roster: %+v", summary)
	}
}
