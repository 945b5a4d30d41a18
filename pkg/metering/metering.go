package metering

import (
	"context"
	"sync"
	"time"
)

// Service is the usage-metering collaborator. The detection pipeline is a
// pure consumer: it reads current counters and historical aggregates and
// never decides how usage is measured.
type Service interface {
	// CurrentUsage returns the current counter value for a project and
	// metric (for daily caps this is the running total for the current day).
	CurrentUsage(ctx context.Context, projectID, metricType string) (float64, error)

	// RecordUsage adds to a project's counter. Best effort; callers ignore
	// the error beyond logging it.
	RecordUsage(ctx context.Context, projectID, metricType string, amount float64) error

	// AverageUsage returns the mean of the metric's samples recorded in
	// [start, end). A window with no samples averages to zero.
	AverageUsage(ctx context.Context, projectID, metricType string, start, end time.Time) (float64, error)

	// RequestCounts returns the total and failed request counts for the
	// project in [start, end).
	RequestCounts(ctx context.Context, projectID string, start, end time.Time) (total, errors int64, err error)
}

// sample is a single recorded usage data point.
type sample struct {
	value float64
	at    time.Time
}

// MemoryService is an in-memory Service used in tests and local runs.
// Production deployments wire the platform's metering client instead.
type MemoryService struct {
	mu      sync.RWMutex
	current map[string]float64 // projectID|metricType -> counter
	samples map[string][]sample
	totals  map[string]int64 // projectID -> request count
	errs    map[string]int64 // projectID -> failed request count
}

// NewMemoryService creates an empty in-memory metering service.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		current: make(map[string]float64),
		samples: make(map[string][]sample),
		totals:  make(map[string]int64),
		errs:    make(map[string]int64),
	}
}

func key(projectID, metricType string) string {
	return projectID + "|" + metricType
}

// SetCurrentUsage sets the current counter for a project metric.
func (m *MemoryService) SetCurrentUsage(projectID, metricType string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current[key(projectID, metricType)] = value
}

// AddSample records a historical sample used by AverageUsage.
func (m *MemoryService) AddSample(projectID, metricType string, value float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(projectID, metricType)
	m.samples[k] = append(m.samples[k], sample{value: value, at: at})
}

// SetRequestCounts sets the total and failed request counts for a project.
func (m *MemoryService) SetRequestCounts(projectID string, total, errors int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[projectID] = total
	m.errs[projectID] = errors
}

// CurrentUsage implements Service.
func (m *MemoryService) CurrentUsage(_ context.Context, projectID, metricType string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current[key(projectID, metricType)], nil
}

// RecordUsage implements Service.
func (m *MemoryService) RecordUsage(_ context.Context, projectID, metricType string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(projectID, metricType)
	m.current[k] += amount
	m.samples[k] = append(m.samples[k], sample{value: amount, at: time.Now()})
	return nil
}

// AverageUsage implements Service.
func (m *MemoryService) AverageUsage(_ context.Context, projectID, metricType string, start, end time.Time) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum float64
	var n int
	for _, s := range m.samples[key(projectID, metricType)] {
		if s.at.Before(start) || !s.at.Before(end) {
			continue
		}
		sum += s.value
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// RequestCounts implements Service.
func (m *MemoryService) RequestCounts(_ context.Context, projectID string, _, _ time.Time) (total, errors int64, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totals[projectID], m.errs[projectID], nil
}
