package project

import (
	"context"
	"time"
)

// Environment identifies the deployment environment a project runs in.
// Non-production environments are exempt from automatic suspension.
type Environment string

const (
	// EnvProduction is a live, customer-facing deployment.
	EnvProduction Environment = "production"

	// EnvStaging is a pre-production deployment.
	EnvStaging Environment = "staging"

	// EnvDevelopment is a developer sandbox.
	EnvDevelopment Environment = "development"
)

// Status is the lifecycle status of a project as seen by this core.
type Status string

const (
	// StatusActive means the project may consume resources.
	StatusActive Status = "active"

	// StatusSuspended means resource consumption is blocked.
	StatusSuspended Status = "suspended"
)

// Project is the read-only snapshot of a hosted project that the
// detection pipeline operates on. Identity and ownership fields are owned
// by the project-management service; this core never mutates them, only
// the Status flag (and only through the suspension store transaction).
type Project struct {
	// ID is the stable project identifier.
	ID string

	// Name is the human-readable project name, used in notifications.
	Name string

	// OwnerEmail receives suspension notices.
	OwnerEmail string

	// Environment is the deployment environment.
	Environment Environment

	// Status is the current lifecycle status.
	Status Status

	// CreatedAt is when the project was provisioned.
	CreatedAt time.Time
}

// Directory exposes the project roster to the sweep. Implementations are
// backed by the platform's project store; this core only reads from it
// except for the status flip inside a suspension transaction.
type Directory interface {
	// ListActive returns all projects whose status is active.
	ListActive(ctx context.Context) ([]*Project, error)

	// Get returns the project with the given ID, or a NotFoundError.
	Get(ctx context.Context, id string) (*Project, error)
}
