// Package tui is the bubbletea dashboard behind "herbtrace tui" and
// "status --watch": connectivity badge, pending counts, last cycle, and a
// queue view with sync and retry keys.
package tui

import (
	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
)

// Ports are the driving ports the dashboard reads from.
type Ports struct {
	// Status publishes connectivity and pending counts.
	Status driving.StatusService

	// Queue lists locally held records for the queue view.
	Queue driving.RecordQueue

	// Sync triggers cycles and resets exhausted records.
	Sync driving.SyncCoordinator
}

// Validate ensures all required ports are set.
// Queue and Sync are optional; their views and keys are disabled when nil.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Status == nil {
		return ErrMissingStatusService
	}
	return nil
}
