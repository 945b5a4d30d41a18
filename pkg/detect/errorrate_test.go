package detect

import (
	"context"
	"testing"
	"time"

	"nextmavens/warden/pkg/metering"
)

func TestErrorRateBelowRequestFloorNeverConfirms(t *testing.T) {
	d := NewErrorRateDetector(ErrorRateConfig{}, metering.NewMemoryService(), nil)

	// 100% error rate on a tiny sample is still not a signal.
	result, err := d.DetectHighErrorRate(context.Background(), "proj-1", 50, 50, 0)
	if err != nil {
		t.Fatalf("DetectHighErrorRate: %v", err)
	}
	if result != nil {
		t.Error("sample below the request floor must not confirm")
	}
}

func TestErrorRateConfirmsAtThreshold(t *testing.T) {
	results := &memoryResults{}
	d := NewErrorRateDetector(ErrorRateConfig{}, metering.NewMemoryService(), results)

	// Exactly 50% at the floor: the threshold is inclusive.
	result, err := d.DetectHighErrorRate(context.Background(), "proj-1", 100, 50, 0)
	if err != nil {
		t.Fatalf("DetectHighErrorRate: %v", err)
	}
	if result == nil {
		t.Fatal("50% of 100 requests should confirm")
	}
	if result.Detector != KindErrorRate {
		t.Errorf("wrong detector kind: %s", result.Detector)
	}
	if result.Observed != 50 {
		t.Errorf("observed rate: expected 50, got %v", result.Observed)
	}
	if len(results.saved) != 1 {
		t.Errorf("result not persisted: %d", len(results.saved))
	}
}

func TestErrorRateBelowThresholdDoesNotConfirm(t *testing.T) {
	d := NewErrorRateDetector(ErrorRateConfig{}, metering.NewMemoryService(), nil)

	result, err := d.DetectHighErrorRate(context.Background(), "proj-1", 1000, 499, 0)
	if err != nil {
		t.Fatalf("DetectHighErrorRate: %v", err)
	}
	if result != nil {
		t.Error("49.9% should not confirm at the 50% threshold")
	}
}

func TestErrorRateSeverityTiers(t *testing.T) {
	tests := []struct {
		name     string
		errors   int64
		severity Severity
		action   Action
	}{
		{"just past threshold", 550, SeverityWarning, ActionNone},
		{"half again past threshold", 800, SeverityCritical, ActionWarn},
		{"near total failure", 960, SeveritySevere, ActionSuspend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewErrorRateDetector(ErrorRateConfig{}, metering.NewMemoryService(), nil)
			result, err := d.DetectHighErrorRate(context.Background(), "proj-1", 1000, tt.errors, 0)
			if err != nil {
				t.Fatalf("DetectHighErrorRate: %v", err)
			}
			if result == nil {
				t.Fatal("expected a confirmed detection")
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

func TestErrorRateZeroRequests(t *testing.T) {
	d := NewErrorRateDetector(ErrorRateConfig{}, metering.NewMemoryService(), nil)

	now := time.Now()
	rate, err := d.ErrorRate(context.Background(), "quiet", now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("ErrorRate: %v", err)
	}
	if rate != 0 {
		t.Errorf("no requests should yield a zero rate, got %v", rate)
	}
}

func TestErrorRateCheckProject(t *testing.T) {
	svc := metering.NewMemoryService()
	svc.SetRequestCounts("proj-1", 200, 150)
	d := NewErrorRateDetector(ErrorRateConfig{}, svc, nil)

	result, err := d.CheckProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if result == nil {
		t.Fatal("75% of 200 requests should confirm")
	}
}

func TestErrorRateReconfigure(t *testing.T) {
	d := NewErrorRateDetector(ErrorRateConfig{}, metering.NewMemoryService(), nil)

	d.Reconfigure(ErrorRateConfig{ThresholdPercent: 90})
	result, err := d.DetectHighErrorRate(context.Background(), "proj-1", 1000, 600, 0)
	if err != nil {
		t.Fatalf("DetectHighErrorRate: %v", err)
	}
	if result != nil {
		t.Error("60% should not confirm after raising the threshold to 90%")
	}

	d.Reconfigure(ErrorRateConfig{})
	if got := d.cfg().ThresholdPercent; got != 50 {
		t.Errorf("expected default threshold 50 after zero reconfigure, got %v", got)
	}
}
