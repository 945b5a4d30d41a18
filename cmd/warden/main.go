// Warden is a multi-tenant abuse-prevention service for hosted projects.
//
// It enforces per-project resource quotas, runs anomaly detection over
// usage telemetry, and suspends projects that exceed caps or trip
// suspicious-activity detectors.
//
// Usage:
//
//	# Start the service with default configuration
//	warden run
//
//	# Start with a custom configuration file
//	warden run --config /path/to/config.yaml
//
//	# Run a single suspension sweep and exit
//	warden sweep
//
//	# Inspect effective quotas for a project
//	warden quota get --project proj-123
//
//	# Suspend a project manually
//	warden suspend proj-123 --notes "abuse report #4521"
//
//	# Validate a configuration file
//	warden validate --config config.yaml
package main

func main() {
	Execute()
}
