// Package sweep orchestrates the periodic abuse-prevention pass over
// all active projects.
//
// Each run walks the active project list, checks quota caps through the
// enforcement engine, runs the usage-spike, error-rate, and pattern
// detectors, and suspends projects whose worst violation or confirmed
// detection calls for it. Environment policy decides which projects are
// eligible for automatic suspension; by default only production
// projects are.
//
// Per-project failures are isolated: one project erroring never aborts
// the sweep for the rest. The Scheduler wraps the orchestrator in a
// cron schedule for unattended operation, and Metrics exposes per-sweep
// Prometheus counters and timings.
package sweep
