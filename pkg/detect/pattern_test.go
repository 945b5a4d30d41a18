package detect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memoryConfigs is a minimal in-test ConfigStore.
type memoryConfigs struct {
	mu        sync.Mutex
	overrides map[string]*PatternOverrides
	err       error
}

func newMemoryConfigs() *memoryConfigs {
	return &memoryConfigs{overrides: make(map[string]*PatternOverrides)}
}

func (m *memoryConfigs) GetOverrides(_ context.Context, projectID string) (*PatternOverrides, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.overrides[projectID], nil
}

func (m *memoryConfigs) SetOverrides(_ context.Context, o *PatternOverrides) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[o.ProjectID] = o
	return nil
}

func (m *memoryConfigs) DeleteOverrides(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, projectID)
	return nil
}

func addEvents(src *MemoryEventSource, projectID string, kind PatternKind, n int, spread time.Duration) {
	now := time.Now()
	for i := 0; i < n; i++ {
		src.AddEvent(projectID, kind, now.Add(-time.Duration(i)*spread/time.Duration(n+1)))
	}
}

func TestPatternSQLInjectionConfirmsAtThreshold(t *testing.T) {
	events := NewMemoryEventSource()
	addEvents(events, "proj-1", PatternSQLInjection, 3, 4*time.Minute)
	results := &memoryResults{}
	d := NewPatternDetector(DefaultPatternConfig(), events, nil, results)

	confirmed, err := d.CheckProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(confirmed) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(confirmed))
	}
	r := confirmed[0]
	if r.Subject != string(PatternSQLInjection) {
		t.Errorf("wrong subject: %s", r.Subject)
	}
	if r.Action != ActionSuspend {
		t.Errorf("sql_injection should suspend on detection, got %s", r.Action)
	}
	if len(results.saved) != 1 {
		t.Errorf("result not persisted: %d", len(results.saved))
	}
}

func TestPatternBelowThresholdDoesNotConfirm(t *testing.T) {
	events := NewMemoryEventSource()
	addEvents(events, "proj-1", PatternSQLInjection, 2, 4*time.Minute)
	d := NewPatternDetector(DefaultPatternConfig(), events, nil, nil)

	confirmed, err := d.CheckProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(confirmed) != 0 {
		t.Errorf("2 of 3 occurrences should not confirm, got %d", len(confirmed))
	}
}

func TestPatternEventsOutsideWindowIgnored(t *testing.T) {
	events := NewMemoryEventSource()
	// Three signatures, but spread over an hour: at most one falls inside
	// the five-minute window.
	old := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		events.AddEvent("proj-1", PatternSQLInjection, old.Add(time.Duration(i)*time.Minute))
	}
	d := NewPatternDetector(DefaultPatternConfig(), events, nil, nil)

	confirmed, err := d.CheckProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(confirmed) != 0 {
		t.Errorf("stale events should not confirm, got %d", len(confirmed))
	}
}

func TestPatternAPIKeyCreationWarnsOnly(t *testing.T) {
	events := NewMemoryEventSource()
	addEvents(events, "proj-1", PatternAPIKeyCreation, 6, 30*time.Minute)
	d := NewPatternDetector(DefaultPatternConfig(), events, nil, nil)

	confirmed, err := d.CheckProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(confirmed) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(confirmed))
	}
	if confirmed[0].Action != ActionWarn {
		t.Errorf("api_key_creation should warn by default, got %s", confirmed[0].Action)
	}
}

func TestPatternMultipleKindsInOneCheck(t *testing.T) {
	events := NewMemoryEventSource()
	addEvents(events, "proj-1", PatternAuthBruteForce, 12, 10*time.Minute)
	addEvents(events, "proj-1", PatternAPIKeyCreation, 6, 30*time.Minute)
	d := NewPatternDetector(DefaultPatternConfig(), events, nil, nil)

	confirmed, err := d.CheckProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(confirmed) != 2 {
		t.Fatalf("expected both kinds to confirm, got %d", len(confirmed))
	}
}

func TestPatternOverrideMergesFieldByField(t *testing.T) {
	events := NewMemoryEventSource()
	addEvents(events, "proj-1", PatternSQLInjection, 1, time.Minute)
	configs := newMemoryConfigs()

	one := int64(1)
	configs.overrides["proj-1"] = &PatternOverrides{
		ProjectID:    "proj-1",
		SQLInjection: &PatternRuleOverride{MinOccurrences: &one},
	}

	d := NewPatternDetector(DefaultPatternConfig(), events, configs, nil)
	cfg := d.EffectiveConfig(context.Background(), "proj-1")

	if cfg.SQLInjection.MinOccurrences != 1 {
		t.Errorf("override lost: %d", cfg.SQLInjection.MinOccurrences)
	}
	// Unset fields keep their defaults.
	if cfg.SQLInjection.Window != 5*time.Minute {
		t.Errorf("default window lost: %s", cfg.SQLInjection.Window)
	}
	if !cfg.SQLInjection.SuspendOnDetection {
		t.Error("default suspend flag lost")
	}
	if cfg.AuthBruteForce.MinOccurrences != 10 {
		t.Errorf("untouched rule changed: %d", cfg.AuthBruteForce.MinOccurrences)
	}

	// With min_occurrences 1, a single signature confirms.
	confirmed, err := d.CheckProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(confirmed) != 1 {
		t.Errorf("expected 1 detection with lowered threshold, got %d", len(confirmed))
	}
}

func TestPatternDisabledRuleSkipped(t *testing.T) {
	events := NewMemoryEventSource()
	addEvents(events, "proj-1", PatternSQLInjection, 10, time.Minute)
	configs := newMemoryConfigs()

	off := false
	configs.overrides["proj-1"] = &PatternOverrides{
		ProjectID:    "proj-1",
		SQLInjection: &PatternRuleOverride{Enabled: &off},
	}

	d := NewPatternDetector(DefaultPatternConfig(), events, configs, nil)
	confirmed, err := d.CheckProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(confirmed) != 0 {
		t.Errorf("disabled rule should not confirm, got %d", len(confirmed))
	}
}

func TestPatternConfigLookupFailureFallsBackToDefaults(t *testing.T) {
	events := NewMemoryEventSource()
	configs := newMemoryConfigs()
	configs.err = errors.New("store down")

	d := NewPatternDetector(DefaultPatternConfig(), events, configs, nil)
	cfg := d.EffectiveConfig(context.Background(), "proj-1")
	if cfg != DefaultPatternConfig() {
		t.Error("lookup failure should fall back to defaults")
	}
}

func TestResolveConfigNilOverride(t *testing.T) {
	defaults := DefaultPatternConfig()
	if ResolveConfig(nil, defaults) != defaults {
		t.Error("nil override should return defaults unchanged")
	}
}

func TestPatternReconfigureKeepsOverrides(t *testing.T) {
	events := NewMemoryEventSource()
	configs := newMemoryConfigs()

	two := int64(2)
	configs.overrides["proj-1"] = &PatternOverrides{
		ProjectID:    "proj-1",
		SQLInjection: &PatternRuleOverride{MinOccurrences: &two},
	}

	d := NewPatternDetector(DefaultPatternConfig(), events, configs, nil)

	next := DefaultPatternConfig()
	next.SQLInjection.Window = 30 * time.Minute
	d.Reconfigure(next)

	cfg := d.EffectiveConfig(context.Background(), "proj-1")
	if cfg.SQLInjection.Window != 30*time.Minute {
		t.Errorf("new default window not applied: %s", cfg.SQLInjection.Window)
	}
	if cfg.SQLInjection.MinOccurrences != 2 {
		t.Errorf("stored override lost across reconfigure: %d", cfg.SQLInjection.MinOccurrences)
	}
}
