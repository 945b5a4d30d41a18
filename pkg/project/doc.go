// Package project defines the project model and directory contract shared
// by the quota, detection, and suspension packages.
//
// The project-management service owns project identity; this package only
// describes the slice of it the abuse-prevention core needs: an identifier,
// a deployment environment (production projects are the only ones subject
// to automatic suspension), and the active/suspended status flag.
package project
