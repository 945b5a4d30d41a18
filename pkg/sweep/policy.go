package sweep

import "nextmavens/warden/pkg/project"

// EnvironmentPolicy decides whether automatic suspension applies to a
// deployment environment. Manual suspension is always possible; this
// policy only gates the sweep.
type EnvironmentPolicy interface {
	AutoSuspendEnabled(env project.Environment) bool
}

// ProductionOnlyPolicy auto-suspends production projects only. Dev and
// staging projects are counted as skipped by the sweep.
type ProductionOnlyPolicy struct{}

// AutoSuspendEnabled implements EnvironmentPolicy.
func (ProductionOnlyPolicy) AutoSuspendEnabled(env project.Environment) bool {
	return env == project.EnvProduction
}

// AllowAllPolicy auto-suspends regardless of environment. Used in tests
// and in single-environment deployments.
type AllowAllPolicy struct{}

// AutoSuspendEnabled implements EnvironmentPolicy.
func (AllowAllPolicy) AutoSuspendEnabled(project.Environment) bool {
	return true
}
