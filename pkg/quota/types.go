package quota

import "time"

// CapType is a named resource dimension subject to a hard cap.
type CapType string

const (
	// CapDBQueriesPerDay limits database queries per calendar day.
	CapDBQueriesPerDay CapType = "db_queries_per_day"

	// CapAPIRequestsPerDay limits API requests per calendar day.
	CapAPIRequestsPerDay CapType = "api_requests_per_day"

	// CapStorageMB limits total stored data in megabytes.
	CapStorageMB CapType = "storage_mb"

	// CapBandwidthMBPerDay limits egress bandwidth per calendar day.
	CapBandwidthMBPerDay CapType = "bandwidth_mb_per_day"

	// CapRealtimeConnections limits concurrent realtime connections.
	CapRealtimeConnections CapType = "realtime_connections"
)

// CapTypes lists all cap types in their declared order. The order is the
// tie-break order when two caps are exceeded by the same ratio.
var CapTypes = []CapType{
	CapDBQueriesPerDay,
	CapAPIRequestsPerDay,
	CapStorageMB,
	CapBandwidthMBPerDay,
	CapRealtimeConnections,
}

// DefaultCaps are the cap values applied to every new project and used as
// the fallback when a project has no stored override for a cap type.
var DefaultCaps = map[CapType]float64{
	CapDBQueriesPerDay:     50000,
	CapAPIRequestsPerDay:   100000,
	CapStorageMB:           1024,
	CapBandwidthMBPerDay:   5120,
	CapRealtimeConnections: 200,
}

// Valid reports whether the cap type is one of the declared cap types.
func (c CapType) Valid() bool {
	_, ok := DefaultCaps[c]
	return ok
}

// MetricType returns the usage-metering metric name for the cap type.
// Cap types and metric names are aligned one-to-one.
func (c CapType) MetricType() string {
	return string(c)
}

// Quota is the configured limit for one project and cap type.
type Quota struct {
	// ProjectID identifies the project.
	ProjectID string

	// CapType is the limited resource dimension.
	CapType CapType

	// CapValue is the limit. Always > 0.
	CapValue float64

	// UpdatedAt is when the value was last set.
	UpdatedAt time.Time
}

// CheckResult is the outcome of evaluating usage against a quota.
type CheckResult struct {
	// Allowed is true while usage is strictly below the limit. Usage equal
	// to the limit is blocked.
	Allowed bool

	// CapType is the evaluated cap type.
	CapType CapType

	// Limit is the effective limit (stored override or default).
	Limit float64

	// CurrentUsage is the metered usage that was evaluated.
	CurrentUsage float64

	// Remaining is max(0, Limit-CurrentUsage).
	Remaining float64
}

// Violation describes one failing cap for a project.
type Violation struct {
	// CapType is the exceeded cap.
	CapType CapType

	// Limit is the effective limit.
	Limit float64

	// CurrentUsage is the metered usage.
	CurrentUsage float64
}

// Ratio returns how far over the limit the usage is (usage/limit).
// Used to pick the most-exceeded cap when several fail at once.
func (v Violation) Ratio() float64 {
	if v.Limit <= 0 {
		return 0
	}
	return v.CurrentUsage / v.Limit
}
