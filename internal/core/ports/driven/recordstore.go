package driven

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// RecordStore is the durable local queue of captured records.
// It is the single source of truth for what has been captured but not yet
// confirmed by the remote authority.
type RecordStore interface {
	// Append stores a new pending record and returns its client ID.
	// The record is durable before Append returns. Failures are
	// StoreError{write-failure}.
	Append(ctx context.Context, kind domain.RecordKind, payload []byte) (string, error)

	// Get retrieves a record by client ID.
	Get(ctx context.Context, clientID string) (*domain.PendingRecord, error)

	// List returns records matching the predicate, oldest first.
	// Each call performs a fresh read. The sequence is finite and may be
	// ranged over more than once; every range re-reads the snapshot taken
	// when List was called.
	List(ctx context.Context, predicate domain.RecordPredicate) (iter.Seq[domain.PendingRecord], error)

	// Transition moves a record to a new state. Moving to failed increments
	// Attempts and records errMsg. Illegal edges fail with
	// StoreError{illegal-transition}.
	Transition(ctx context.Context, clientID string, to domain.SyncState, errMsg string) error

	// ScheduleRetry sets the earliest time a retry wave may claim a failed record.
	ScheduleRetry(ctx context.Context, clientID string, at time.Time) error

	// ResetAttempts moves a failed record back to pending with zero attempts.
	ResetAttempts(ctx context.Context, clientID string) error

	// Purge removes a synced record. Purging any other state fails with
	// StoreError{illegal-transition}.
	Purge(ctx context.Context, clientID string) error

	// Counts returns the number of records per state.
	Counts(ctx context.Context) (map[domain.SyncState]int, error)

	// Export writes the persisted layout as a JSON list.
	Export(ctx context.Context, w io.Writer) error

	// Import loads entries in the persisted layout, skipping client IDs that
	// already exist and corrupt entries. Returns the number imported.
	Import(ctx context.Context, r io.Reader) (int, error)

	// Subscribe registers a callback invoked after every committed mutation.
	Subscribe(fn func()) (unsubscribe func())
}
