// Package quota manages per-project hard caps.
//
// A Quota is a (project, cap type, value) row. Projects start with
// platform defaults (applied idempotently on provisioning) and may carry
// custom overrides per cap type; deleting an override reverts the project
// to the default for subsequent reads.
//
// The enforcement subpackage evaluates metered usage against effective
// limits; this package only owns configuration.
package quota
