package driven

import (
	"context"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// DraftStore persists in-progress captures, one per kind.
type DraftStore interface {
	// SaveDraft stores or replaces the draft for its kind.
	SaveDraft(ctx context.Context, draft domain.Draft) error

	// GetDraft retrieves the draft for a kind.
	// Returns domain.ErrNotFound if none exists.
	GetDraft(ctx context.Context, kind domain.RecordKind) (*domain.Draft, error)

	// DeleteDraft removes the draft for a kind. Missing drafts are not an error.
	DeleteDraft(ctx context.Context, kind domain.RecordKind) error
}
