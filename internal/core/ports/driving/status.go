package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// StatusService exposes a consistent snapshot of pending work.
type StatusService interface {
	// GetSnapshot recomputes the snapshot from its constituents.
	GetSnapshot(ctx context.Context) (domain.SyncSnapshot, error)

	// Subscribe registers a handler called with every recomputed snapshot.
	Subscribe(handler func(domain.SyncSnapshot)) (unsubscribe func())
}

// ConnectivityMonitor publishes debounced connectivity transitions.
type ConnectivityMonitor interface {
	// Current returns the last published state.
	Current() domain.ConnectivityState

	// Subscribe registers a transition handler.
	Subscribe(handler func(domain.ConnectivityState)) (unsubscribe func())
}

// ConnectivityRefresher probes reachability on demand for callers that do
// not run the monitor loop.
type ConnectivityRefresher interface {
	Refresh(ctx context.Context) domain.ConnectivityState
}

// GeolocationAcquirer resolves device positions with bounded retries.
type GeolocationAcquirer interface {
	// Acquire resolves one fix or fails with *domain.GeolocationError.
	Acquire(ctx context.Context, opts domain.GeoOptions) (domain.GeoFix, error)

	// Reset clears the attempt counter and any terminal condition.
	Reset()

	// Attempts returns the number of failed attempts since the last success or reset.
	Attempts() int

	// Fallback returns an explicit fallback fix: the manual coordinate when
	// given, else the last device fix. Returns domain.ErrNotFound when neither exists.
	Fallback(manual *domain.GeoFix) (domain.GeoFix, error)
}

// RecordQueue gives read access to the local queue for display surfaces.
type RecordQueue interface {
	// Records lists records in the given states, oldest first. No states
	// means all records.
	Records(ctx context.Context, states ...domain.SyncState) ([]domain.PendingRecord, error)
}

// RecordArchive moves the queue between devices as a JSON list of entries.
type RecordArchive interface {
	// Export writes every readable record.
	Export(ctx context.Context, w io.Writer) error

	// Import loads entries, skipping client IDs already present.
	// Returns the number of records added.
	Import(ctx context.Context, r io.Reader) (int, error)
}
