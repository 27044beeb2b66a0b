package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
)

// Ensure DraftStore implements the interface.
var _ driven.DraftStore = (*DraftStore)(nil)

// DraftStore is an in-memory implementation of driven.DraftStore.
type DraftStore struct {
	mu     sync.RWMutex
	drafts map[domain.RecordKind]domain.Draft
}

// NewDraftStore creates a new in-memory draft store.
func NewDraftStore() *DraftStore {
	return &DraftStore{
		drafts: make(map[domain.RecordKind]domain.Draft),
	}
}

// SaveDraft stores or replaces the draft for its kind.
func (s *DraftStore) SaveDraft(_ context.Context, draft domain.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft.Payload = append([]byte(nil), draft.Payload...)
	s.drafts[draft.Kind] = draft
	return nil
}

// GetDraft retrieves the draft for a kind.
func (s *DraftStore) GetDraft(_ context.Context, kind domain.RecordKind) (*domain.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft, ok := s.drafts[kind]
	if !ok {
		return nil, domain.ErrNotFound
	}
	draft.Payload = append([]byte(nil), draft.Payload...)
	return &draft, nil
}

// DeleteDraft removes the draft for a kind.
func (s *DraftStore) DeleteDraft(_ context.Context, kind domain.RecordKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, kind)
	return nil
}
