// Package metrics defines the observability interface for the server.
//
// The interface is optional: pass nil to disable collection with zero
// overhead. The prometheus subpackage provides the production
// implementation.
package metrics

import "time"

// ServerMetrics records connection lifecycle and request outcomes.
type ServerMetrics interface {
	// RecordConnectionAccepted increments the accepted-connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed-connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed increments the force-closed counter.
	// Called when connections are closed after the shutdown timeout.
	RecordConnectionForceClosed()

	// SetActiveConnections updates the current connection gauge.
	SetActiveConnections(count int32)

	// RecordRequest records a completed request with its operation name
	// ("FIND", "CALL", or "UNKNOWN" for a frame that could not be
	// decoded), duration, and outcome ("success", "failure", or "error").
	RecordRequest(operation string, duration time.Duration, outcome string)
}
