package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
)

// draftStore implements driven.DraftStore.
type draftStore struct {
	store *Store
}

var _ driven.DraftStore = (*draftStore)(nil)

// SaveDraft stores or replaces the draft for its kind.
func (s *draftStore) SaveDraft(ctx context.Context, draft domain.Draft) error {
	savedAt := draft.SavedAt
	if savedAt.IsZero() {
		savedAt = s.store.now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO drafts (kind, payload, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			payload = excluded.payload,
			saved_at = excluded.saved_at
	`, string(draft.Kind), string(draft.Payload), savedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &domain.StoreError{Kind: domain.StoreErrWriteFailure, Err: fmt.Errorf("saving draft: %w", err)}
	}
	return nil
}

// GetDraft retrieves the draft for a kind.
func (s *draftStore) GetDraft(ctx context.Context, kind domain.RecordKind) (*domain.Draft, error) {
	var payload, savedAt string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT payload, saved_at FROM drafts WHERE kind = ?", string(kind)).Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying draft: %w", err)
	}

	draft := &domain.Draft{Kind: kind, Payload: []byte(payload)}
	if t, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
		draft.SavedAt = t
	}
	return draft, nil
}

// DeleteDraft removes the draft for a kind.
func (s *draftStore) DeleteDraft(ctx context.Context, kind domain.RecordKind) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM drafts WHERE kind = ?", string(kind)); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}
