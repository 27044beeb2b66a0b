package driving

import (
	"context"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// CaptureService is the entry point presentation forms use to save records.
type CaptureService interface {
	// SubmitRecord durably queues a record and returns its client ID.
	// It succeeds regardless of connectivity.
	SubmitRecord(ctx context.Context, kind domain.RecordKind, payload []byte) (string, error)
}

// DraftService manages in-progress captures.
type DraftService interface {
	// SaveDraft stores or replaces the draft for a kind.
	SaveDraft(ctx context.Context, kind domain.RecordKind, payload []byte) error

	// LoadDraft returns the draft for a kind, or domain.ErrNotFound.
	LoadDraft(ctx context.Context, kind domain.RecordKind) (*domain.Draft, error)

	// DiscardDraft removes the draft for a kind.
	DiscardDraft(ctx context.Context, kind domain.RecordKind) error

	// FinalizeDraft submits the draft as a record and then discards it.
	FinalizeDraft(ctx context.Context, kind domain.RecordKind) (string, error)
}
