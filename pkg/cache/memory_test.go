package cache

import (
	"context"
	"testing"
	"time"

	"nextmavens/warden/pkg/project"
)

func TestMemoryCacheRoundtrip(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	p := &project.Project{ID: "proj-1", Name: "One", Status: project.StatusActive}
	if err := c.Set(ctx, p); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := c.Get(ctx, "proj-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Name != "One" {
		t.Fatalf("bad snapshot: %+v", got)
	}

	// The cache hands out copies, not the stored pointer.
	got.Name = "mutated"
	again, _ := c.Get(ctx, "proj-1")
	if again.Name != "One" {
		t.Error("cache entry leaked by reference")
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(time.Minute)

	got, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil on miss, got %+v", got)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	if err := c.Set(ctx, &project.Project{ID: "proj-1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	got, err := c.Get(ctx, "proj-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("expired entry should be a miss")
	}
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	if err := c.Set(ctx, &project.Project{ID: "proj-1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "proj-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Error("zero-TTL entry should persist")
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, &project.Project{ID: "proj-1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Invalidate(ctx, "proj-1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	got, _ := c.Get(ctx, "proj-1")
	if got != nil {
		t.Error("invalidated entry should be gone")
	}

	// Invalidating an absent entry is not an error.
	if err := c.Invalidate(ctx, "absent"); err != nil {
		t.Errorf("Invalidate absent: %v", err)
	}
}
