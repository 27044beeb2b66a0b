package mcp

import (
	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Capture queues new records.
	Capture driving.CaptureService

	// Status reports pending work and connectivity.
	Status driving.StatusService

	// Queue lists queued records for the queue resources.
	Queue driving.RecordQueue

	// Sync triggers sync cycles.
	Sync driving.SyncCoordinator

	// Location acquires device fixes.
	Location driving.GeolocationAcquirer
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Capture == nil {
		return ErrMissingCaptureService
	}
	if p.Status == nil {
		return ErrMissingStatusService
	}
	// Queue, Sync and Location are optional; their tools report unavailability.
	return nil
}
