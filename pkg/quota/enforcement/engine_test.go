package enforcement

import (
	"context"
	"errors"
	"testing"

	"nextmavens/warden/pkg/metering"
	"nextmavens/warden/pkg/quota"
	"nextmavens/warden/pkg/storage"
)

func newTestEngine(t *testing.T) (*Engine, *quota.Store, *metering.MemoryService) {
	t.Helper()
	repo := storage.NewMemoryStore().QuotaRepository()
	quotas := quota.NewStore(repo)
	meteringSvc := metering.NewMemoryService()
	return NewEngine(quotas, meteringSvc), quotas, meteringSvc
}

func TestCheckQuotaBoundary(t *testing.T) {
	engine, quotas, _ := newTestEngine(t)
	ctx := context.Background()

	if err := quotas.Set(ctx, "proj-1", quota.CapDBQueriesPerDay, 10000); err != nil {
		t.Fatalf("Set: %v", err)
	}

	tests := []struct {
		name    string
		usage   float64
		allowed bool
	}{
		{"well under", 5000, true},
		{"one below limit", 9999, true},
		{"exactly at limit", 10000, false},
		{"over limit", 10001, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.CheckQuota(ctx, "proj-1", quota.CapDBQueriesPerDay, tt.usage)
			if result.Allowed != tt.allowed {
				t.Errorf("usage %v: allowed=%v, expected %v", tt.usage, result.Allowed, tt.allowed)
			}
		})
	}
}

func TestCheckQuotaRemaining(t *testing.T) {
	engine, quotas, _ := newTestEngine(t)
	ctx := context.Background()

	if err := quotas.Set(ctx, "proj-1", quota.CapStorageMB, 100); err != nil {
		t.Fatalf("Set: %v", err)
	}

	result := engine.CheckQuota(ctx, "proj-1", quota.CapStorageMB, 30)
	if result.Remaining != 70 {
		t.Errorf("Remaining: expected 70, got %v", result.Remaining)
	}

	result = engine.CheckQuota(ctx, "proj-1", quota.CapStorageMB, 150)
	if result.Remaining != 0 {
		t.Errorf("Remaining should clamp to 0, got %v", result.Remaining)
	}
}

func TestCheckQuotaUsesDefaultWhenNoOverride(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	result := engine.CheckQuota(context.Background(), "fresh", quota.CapRealtimeConnections, 50)
	if !result.Allowed {
		t.Error("usage under default should be allowed")
	}
	if result.Limit != quota.DefaultCaps[quota.CapRealtimeConnections] {
		t.Errorf("expected default limit, got %v", result.Limit)
	}
}

// failingRepo simulates a storage fault on every operation.
type failingRepo struct{}

var errStorageDown = errors.New("storage down")

func (failingRepo) Get(context.Context, string, quota.CapType) (*quota.Quota, error) {
	return nil, errStorageDown
}
func (failingRepo) List(context.Context, string) ([]*quota.Quota, error) {
	return nil, errStorageDown
}
func (failingRepo) Upsert(context.Context, *quota.Quota) error         { return errStorageDown }
func (failingRepo) InsertIfAbsent(context.Context, *quota.Quota) error { return errStorageDown }
func (failingRepo) Delete(context.Context, string, quota.CapType) error {
	return errStorageDown
}
func (failingRepo) DeleteAll(context.Context, string) error { return errStorageDown }

func TestCheckQuotaFailsOpenOnStorageFault(t *testing.T) {
	quotas := quota.NewStore(failingRepo{})
	engine := NewEngine(quotas, metering.NewMemoryService())

	result := engine.CheckQuota(context.Background(), "proj-1", quota.CapDBQueriesPerDay, 1e12)
	if !result.Allowed {
		t.Error("storage fault must fail open, not block")
	}
}

// failingMetering fails usage lookups while request counts still work.
type failingMetering struct {
	*metering.MemoryService
}

func (failingMetering) CurrentUsage(context.Context, string, string) (float64, error) {
	return 0, errStorageDown
}

func TestCanPerformOperationFailsOpenOnUsageFault(t *testing.T) {
	repo := storage.NewMemoryStore().QuotaRepository()
	engine := NewEngine(quota.NewStore(repo), failingMetering{metering.NewMemoryService()})

	result := engine.CanPerformOperation(context.Background(), "proj-1", quota.CapAPIRequestsPerDay)
	if !result.Allowed {
		t.Error("usage lookup fault must fail open")
	}
}

func TestQuotaViolationsReturnsOnlyFailingCaps(t *testing.T) {
	engine, quotas, meteringSvc := newTestEngine(t)
	ctx := context.Background()

	if err := quotas.Set(ctx, "proj-1", quota.CapDBQueriesPerDay, 1000); err != nil {
		t.Fatalf("Set: %v", err)
	}
	meteringSvc.SetCurrentUsage("proj-1", quota.CapDBQueriesPerDay.MetricType(), 2000)
	meteringSvc.SetCurrentUsage("proj-1", quota.CapAPIRequestsPerDay.MetricType(), 10)

	violations := engine.QuotaViolations(ctx, "proj-1")
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(violations))
	}
	if violations[0].CapType != quota.CapDBQueriesPerDay {
		t.Errorf("wrong cap: %s", violations[0].CapType)
	}
	if violations[0].CurrentUsage != 2000 {
		t.Errorf("wrong usage: %v", violations[0].CurrentUsage)
	}
}

func TestWorstViolationPicksHighestRatio(t *testing.T) {
	violations := []quota.Violation{
		{CapType: quota.CapDBQueriesPerDay, Limit: 1000, CurrentUsage: 1500},   // 1.5x
		{CapType: quota.CapStorageMB, Limit: 100, CurrentUsage: 500},           // 5x
		{CapType: quota.CapAPIRequestsPerDay, Limit: 1000, CurrentUsage: 2000}, // 2x
	}

	worst := WorstViolation(violations)
	if worst == nil {
		t.Fatal("expected a violation")
	}
	if worst.CapType != quota.CapStorageMB {
		t.Errorf("expected storage_mb, got %s", worst.CapType)
	}
}

func TestWorstViolationTieKeepsDeclaredOrder(t *testing.T) {
	// Identical ratios: the earlier cap type in declared order wins.
	violations := []quota.Violation{
		{CapType: quota.CapDBQueriesPerDay, Limit: 100, CurrentUsage: 200},
		{CapType: quota.CapStorageMB, Limit: 50, CurrentUsage: 100},
	}

	worst := WorstViolation(violations)
	if worst.CapType != quota.CapDBQueriesPerDay {
		t.Errorf("tie should keep first declared cap, got %s", worst.CapType)
	}
}

func TestWorstViolationEmpty(t *testing.T) {
	if WorstViolation(nil) != nil {
		t.Error("expected nil for empty slice")
	}
}
