package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
//
// Writers build a new immutable snapshot under a mutex and publish it
// atomically; readers load the current snapshot without locking and never
// observe a partially applied mutation.
type RecordStore struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[[]domain.PendingRecord]
	now      func() time.Time

	listenMu  sync.Mutex
	listeners map[int]func()
	nextID    int
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	s := &RecordStore{
		now:       time.Now,
		listeners: make(map[int]func()),
	}
	empty := []domain.PendingRecord{}
	s.snapshot.Store(&empty)
	return s
}

// WithClock sets the time source used for timestamps.
func (s *RecordStore) WithClock(now func() time.Time) *RecordStore {
	s.now = now
	return s
}

func (s *RecordStore) load() []domain.PendingRecord {
	return *s.snapshot.Load()
}

// Append stores a new pending record.
func (s *RecordStore) Append(_ context.Context, kind domain.RecordKind, payload []byte) (string, error) {
	s.mu.Lock()
	now := s.now()
	rec := domain.PendingRecord{
		ClientID:  domain.NewClientID(now),
		Kind:      kind,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: now,
		UpdatedAt: now,
		SyncState: domain.SyncStatePending,
	}
	cur := s.load()
	next := make([]domain.PendingRecord, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, rec)
	s.snapshot.Store(&next)
	s.mu.Unlock()

	s.notify()
	return rec.ClientID, nil
}

// Get retrieves a record by client ID.
func (s *RecordStore) Get(_ context.Context, clientID string) (*domain.PendingRecord, error) {
	for _, r := range s.load() {
		if r.ClientID == clientID {
			out := r.Clone()
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns records matching the predicate, oldest first.
func (s *RecordStore) List(_ context.Context, predicate domain.RecordPredicate) (iter.Seq[domain.PendingRecord], error) {
	if predicate == nil {
		predicate = domain.AnyRecord
	}
	snap := s.load()
	return func(yield func(domain.PendingRecord) bool) {
		for _, r := range snap {
			if !predicate(r) {
				continue
			}
			if !yield(r.Clone()) {
				return
			}
		}
	}, nil
}

// Transition moves a record to a new state.
func (s *RecordStore) Transition(_ context.Context, clientID string, to domain.SyncState, errMsg string) error {
	return s.update(clientID, func(r *domain.PendingRecord) error {
		return r.Apply(to, errMsg)
	})
}

// ScheduleRetry sets the earliest retry time of a failed record.
func (s *RecordStore) ScheduleRetry(_ context.Context, clientID string, at time.Time) error {
	return s.update(clientID, func(r *domain.PendingRecord) error {
		if r.SyncState != domain.SyncStateFailed {
			return fmt.Errorf("%w: record %s is %s", domain.ErrInvalidInput, clientID, r.SyncState)
		}
		r.NextAttemptAt = at
		return nil
	})
}

// ResetAttempts moves a failed record back to pending with zero attempts.
func (s *RecordStore) ResetAttempts(_ context.Context, clientID string) error {
	return s.update(clientID, func(r *domain.PendingRecord) error {
		if err := domain.CheckTransition(clientID, r.SyncState, domain.SyncStatePending); err != nil {
			return err
		}
		r.SyncState = domain.SyncStatePending
		r.Attempts = 0
		r.NextAttemptAt = time.Time{}
		return nil
	})
}

// Purge removes a synced record.
func (s *RecordStore) Purge(_ context.Context, clientID string) error {
	s.mu.Lock()
	cur := s.load()
	idx := indexOf(cur, clientID)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	if cur[idx].SyncState != domain.SyncStateSynced {
		s.mu.Unlock()
		return &domain.StoreError{
			Kind:     domain.StoreErrIllegalTransition,
			ClientID: clientID,
			Err:      fmt.Errorf("purge of %s record", cur[idx].SyncState),
		}
	}
	next := make([]domain.PendingRecord, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	s.snapshot.Store(&next)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Counts returns the number of records per state.
func (s *RecordStore) Counts(_ context.Context) (map[domain.SyncState]int, error) {
	counts := make(map[domain.SyncState]int, len(domain.AllSyncStates))
	for _, r := range s.load() {
		counts[r.SyncState]++
	}
	return counts, nil
}

// Export writes every record as a JSON list of persisted entries.
func (s *RecordStore) Export(_ context.Context, w io.Writer) error {
	snap := s.load()
	entries := make([]domain.RecordEntry, 0, len(snap))
	for _, r := range snap {
		entries = append(entries, domain.NewRecordEntry(r))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// Import loads persisted entries, skipping existing client IDs and corrupt entries.
func (s *RecordStore) Import(_ context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read import: %w", err)
	}
	records, corrupt, err := domain.DecodeEntryList(data)
	if err != nil {
		return 0, err
	}
	for _, cerr := range corrupt {
		logger.Error("Skipping entry: %v", cerr)
	}

	s.mu.Lock()
	cur := s.load()
	existing := make(map[string]bool, len(cur))
	for _, rec := range cur {
		existing[rec.ClientID] = true
	}
	next := make([]domain.PendingRecord, len(cur), len(cur)+len(records))
	copy(next, cur)
	imported := 0
	for _, rec := range records {
		if existing[rec.ClientID] {
			continue
		}
		existing[rec.ClientID] = true
		next = append(next, rec)
		imported++
	}
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].CreatedAt.Before(next[j].CreatedAt)
	})
	s.snapshot.Store(&next)
	s.mu.Unlock()

	if imported > 0 {
		s.notify()
	}
	return imported, nil
}

// Subscribe registers a callback invoked after every committed mutation.
func (s *RecordStore) Subscribe(fn func()) func() {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenMu.Lock()
		defer s.listenMu.Unlock()
		delete(s.listeners, id)
	}
}

// update applies fn to a copy of one record and publishes a new snapshot.
func (s *RecordStore) update(clientID string, fn func(*domain.PendingRecord) error) error {
	s.mu.Lock()
	cur := s.load()
	idx := indexOf(cur, clientID)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}

	rec := cur[idx].Clone()
	if err := fn(&rec); err != nil {
		s.mu.Unlock()
		return err
	}
	rec.UpdatedAt = s.now()

	next := make([]domain.PendingRecord, len(cur))
	copy(next, cur)
	next[idx] = rec
	s.snapshot.Store(&next)
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *RecordStore) notify() {
	s.listenMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func indexOf(records []domain.PendingRecord, clientID string) int {
	for i, r := range records {
		if r.ClientID == clientID {
			return i
		}
	}
	return -1
}
