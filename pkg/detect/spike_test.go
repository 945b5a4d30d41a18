package detect

import (
	"context"
	"testing"
	"time"

	"nextmavens/warden/pkg/metering"
	"nextmavens/warden/pkg/quota"
)

// memoryResults is a minimal in-test ResultStore.
type memoryResults struct {
	saved []*Result
}

func (m *memoryResults) Save(_ context.Context, r *Result) error {
	m.saved = append(m.saved, r)
	return nil
}

func (m *memoryResults) Query(context.Context, ResultQuery) ([]*Result, error) {
	return m.saved, nil
}

func (m *memoryResults) Summarize(context.Context, ResultQuery) (*Summary, error) {
	return &Summary{Total: int64(len(m.saved))}, nil
}

func seedBaseline(svc *metering.MemoryService, projectID, metric string, value float64) {
	// A handful of samples inside the 7-day look-back window.
	for i := 1; i <= 5; i++ {
		svc.AddSample(projectID, metric, value, time.Now().Add(-time.Duration(i)*24*time.Hour))
	}
}

func TestSpikeBelowFloorNeverConfirms(t *testing.T) {
	svc := metering.NewMemoryService()
	seedBaseline(svc, "proj-1", "db_queries_per_day", 1)
	d := NewSpikeDetector(SpikeConfig{}, svc, nil, nil)

	// 500x the baseline, but under the 1000 absolute floor.
	result, err := d.DetectUsageSpike(context.Background(), "proj-1", "db_queries_per_day", 500, 0)
	if err != nil {
		t.Fatalf("DetectUsageSpike: %v", err)
	}
	if result != nil {
		t.Error("usage under the absolute floor must not confirm a spike")
	}
}

func TestSpikeConfirmsAboveMultiplier(t *testing.T) {
	svc := metering.NewMemoryService()
	seedBaseline(svc, "proj-1", "db_queries_per_day", 100)
	results := &memoryResults{}
	d := NewSpikeDetector(SpikeConfig{}, svc, nil, results)

	result, err := d.DetectUsageSpike(context.Background(), "proj-1", "db_queries_per_day", 1500, 0)
	if err != nil {
		t.Fatalf("DetectUsageSpike: %v", err)
	}
	if result == nil {
		t.Fatal("15x baseline above the floor should confirm")
	}
	if result.Detector != KindUsageSpike {
		t.Errorf("wrong detector kind: %s", result.Detector)
	}
	if result.Subject != "db_queries_per_day" {
		t.Errorf("wrong subject: %s", result.Subject)
	}
	if len(results.saved) != 1 {
		t.Errorf("result not persisted: %d", len(results.saved))
	}
}

func TestSpikeAtMultiplierDoesNotConfirm(t *testing.T) {
	svc := metering.NewMemoryService()
	seedBaseline(svc, "proj-1", "db_queries_per_day", 200)
	d := NewSpikeDetector(SpikeConfig{}, svc, nil, nil)

	// Exactly 10x: the ratio must exceed the multiplier, not meet it.
	result, err := d.DetectUsageSpike(context.Background(), "proj-1", "db_queries_per_day", 2000, 0)
	if err != nil {
		t.Fatalf("DetectUsageSpike: %v", err)
	}
	if result != nil {
		t.Error("ratio equal to the multiplier should not confirm")
	}
}

func TestSpikeZeroBaselineClamps(t *testing.T) {
	svc := metering.NewMemoryService()
	// No samples at all: idle project, zero baseline.
	d := NewSpikeDetector(SpikeConfig{}, svc, nil, nil)

	result, err := d.DetectUsageSpike(context.Background(), "proj-1", "db_queries_per_day", 5000, 0)
	if err != nil {
		t.Fatalf("DetectUsageSpike: %v", err)
	}
	if result == nil {
		t.Fatal("5000 against a clamped baseline of 1 should confirm")
	}
	if result.Severity != SeveritySevere || result.Action != ActionSuspend {
		t.Errorf("5000x should be severe/suspend, got %s/%s", result.Severity, result.Action)
	}
}

func TestSpikeSeverityTiers(t *testing.T) {
	tests := []struct {
		name     string
		usage    float64
		severity Severity
		action   Action
	}{
		{"just past threshold", 1100, SeverityWarning, ActionNone}, // 11x
		{"double threshold", 2500, SeverityCritical, ActionWarn},   // 25x
		{"five times threshold", 6000, SeveritySevere, ActionSuspend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := metering.NewMemoryService()
			seedBaseline(svc, "proj-1", "db_queries_per_day", 100)
			d := NewSpikeDetector(SpikeConfig{}, svc, nil, nil)

			result, err := d.DetectUsageSpike(context.Background(), "proj-1", "db_queries_per_day", tt.usage, 0)
			if err != nil {
				t.Fatalf("DetectUsageSpike: %v", err)
			}
			if result == nil {
				t.Fatal("expected a confirmed spike")
			}
			if result.Severity != tt.severity {
				t.Errorf("severity: expected %s, got %s", tt.severity, result.Severity)
			}
			if result.Action != tt.action {
				t.Errorf("action: expected %s, got %s", tt.action, result.Action)
			}
		})
	}
}

func TestSpikeCheckProjectCoversDailyMetrics(t *testing.T) {
	svc := metering.NewMemoryService()
	for _, metric := range spikeMetrics {
		seedBaseline(svc, "proj-1", metric, 100)
	}
	svc.SetCurrentUsage("proj-1", quota.CapDBQueriesPerDay.MetricType(), 5000)
	svc.SetCurrentUsage("proj-1", quota.CapAPIRequestsPerDay.MetricType(), 5000)
	svc.SetCurrentUsage("proj-1", quota.CapBandwidthMBPerDay.MetricType(), 100)

	d := NewSpikeDetector(SpikeConfig{}, svc, nil, nil)
	results, err := d.CheckProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 confirmed spikes, got %d", len(results))
	}
}

func TestSpikeReconfigure(t *testing.T) {
	svc := metering.NewMemoryService()
	seedBaseline(svc, "proj-1", "db_queries_per_day", 100)
	d := NewSpikeDetector(SpikeConfig{}, svc, nil, nil)

	d.Reconfigure(SpikeConfig{ThresholdMultiplier: 100})
	result, err := d.DetectUsageSpike(context.Background(), "proj-1", "db_queries_per_day", 1500, 0)
	if err != nil {
		t.Fatalf("DetectUsageSpike: %v", err)
	}
	if result != nil {
		t.Error("15x should not confirm after raising the multiplier to 100")
	}

	// Zero fields fall back to the defaults.
	d.Reconfigure(SpikeConfig{})
	if got := d.cfg().ThresholdMultiplier; got != 10 {
		t.Errorf("expected default multiplier 10 after zero reconfigure, got %v", got)
	}
}
