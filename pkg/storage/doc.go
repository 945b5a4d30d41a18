// Package storage provides the primary state store for the
// abuse-prevention core.
//
// One SQLite database holds projects, quotas, suspensions, suspension
// history, and pattern-config overrides, so a suspension transaction can
// flip the project status flag atomically with its record and history
// writes. The "at most one unresolved suspension per project" invariant is
// enforced by a partial unique index, not just application logic.
//
// MemoryStore is the behavioral twin used in tests.
package storage
