package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nextmavens/warden/pkg/detect"
)

// Metrics contains Prometheus metrics for the sweep pipeline. A nil
// *Metrics is valid and records nothing, so tests can run without
// touching the default registry.
type Metrics struct {
	sweepsTotal       prometheus.Counter
	projectsChecked   prometheus.Counter
	projectsSuspended *prometheus.CounterVec
	projectsSkipped   prometheus.Counter
	projectsFailed    prometheus.Counter
	detections        *prometheus.CounterVec
	sweepDuration     prometheus.Histogram
}

// NewMetrics creates the sweep metrics and registers them with the
// default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		sweepsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_sweeps_total",
			Help: "Total number of suspension sweeps run",
		}),

		projectsChecked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_sweep_projects_checked_total",
			Help: "Total number of projects evaluated by sweeps",
		}),

		projectsSuspended: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_sweep_projects_suspended_total",
				Help: "Total number of projects suspended by sweeps",
			},
			[]string{"cause"},
		),

		projectsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_sweep_projects_skipped_total",
			Help: "Total number of projects skipped by environment policy",
		}),

		projectsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_sweep_projects_failed_total",
			Help: "Total number of per-project sweep failures",
		}),

		detections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_detections_total",
				Help: "Total number of confirmed detections",
			},
			[]string{"detector", "severity"},
		),

		sweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_sweep_duration_seconds",
			Help:    "Duration of suspension sweeps in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
	}
}

// RecordSweep records one completed sweep.
func (m *Metrics) RecordSweep(durationSeconds float64) {
	if m == nil {
		return
	}
	m.sweepsTotal.Inc()
	m.sweepDuration.Observe(durationSeconds)
}

// RecordChecked records an evaluated project.
func (m *Metrics) RecordChecked() {
	if m == nil {
		return
	}
	m.projectsChecked.Inc()
}

// RecordSuspended records a sweep-initiated suspension by cause.
func (m *Metrics) RecordSuspended(cause string) {
	if m == nil {
		return
	}
	m.projectsSuspended.WithLabelValues(cause).Inc()
}

// RecordSkipped records a project exempted by environment policy.
func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.projectsSkipped.Inc()
}

// RecordFailed records a per-project sweep failure.
func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.projectsFailed.Inc()
}

// RecordDetection records one confirmed detection.
func (m *Metrics) RecordDetection(detector detect.Kind, severity detect.Severity) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(string(detector), string(severity)).Inc()
}
