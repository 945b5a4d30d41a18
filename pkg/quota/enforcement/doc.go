// Package enforcement decides whether metered usage is within a project's
// effective quota limits.
//
// The boundary is inclusive of the limit as a blocking value: usage equal
// to the limit fails the check. Infrastructure faults during a check fail
// open (allow and log) so transient storage problems never block traffic.
package enforcement
