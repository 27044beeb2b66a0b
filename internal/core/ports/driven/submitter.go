package driven

import (
	"context"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// Ack is a positive acknowledgement from the remote authority.
type Ack struct {
	// ReceiptID is the authority's identifier for the accepted record.
	ReceiptID string

	// Duplicate is set when the authority had already accepted this client ID.
	Duplicate bool
}

// RemoteSubmitter sends a record to the remote authority.
// Implementations classify failures as *domain.SyncError.
type RemoteSubmitter interface {
	Submit(ctx context.Context, record domain.PendingRecord) (Ack, error)
}

// SubmitterFunc adapts a function to RemoteSubmitter.
type SubmitterFunc func(ctx context.Context, record domain.PendingRecord) (Ack, error)

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, record domain.PendingRecord) (Ack, error) {
	return f(ctx, record)
}
