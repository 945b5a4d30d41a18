// Package cache provides the project snapshot cache the suspension
// pipeline invalidates after state transitions. Redis backs shared
// deployments; the memory twin serves tests and single-instance runs.
package cache
