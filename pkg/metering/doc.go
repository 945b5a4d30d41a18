// Package metering defines the contract for the external usage-metering
// service and provides an in-memory implementation for tests.
package metering
