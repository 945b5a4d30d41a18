// Package suspension implements the blocking state machine all detectors
// feed into.
//
// A project is suspended when it has exactly one unresolved suspension
// record; the store enforces the at-most-one invariant with a partial
// unique index, so a manual suspension racing an automatic one collapses
// into a single record and a no-op. Transitions commit the record, the
// append-only history entry, and the project status flag atomically.
//
// Side effects after a commit (snapshot cache invalidation, audit logging,
// stakeholder notification) flow through an Outbox with retries, a
// dead-letter list, and a circuit breaker around notification dispatch.
// "Suspension committed" and "notification delivered" are independent
// events; the latter can fail without disturbing the former.
package suspension
