package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Append stores a new pending record. The record is committed before
// Append returns.
func (s *recordStore) Append(ctx context.Context, kind domain.RecordKind, payload []byte) (string, error) {
	now := s.store.now().UTC()
	rec := domain.PendingRecord{
		ClientID:  domain.NewClientID(now),
		Kind:      kind,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: now,
		UpdatedAt: now,
		SyncState: domain.SyncStatePending,
	}

	entry, err := domain.EncodeEntry(rec)
	if err != nil {
		return "", err
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO records (client_id, kind, sync_state, entry, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ClientID, string(rec.Kind), string(rec.SyncState), string(entry), now.Format(time.RFC3339Nano))
	if err != nil {
		return "", &domain.StoreError{Kind: domain.StoreErrWriteFailure, ClientID: rec.ClientID, Err: err}
	}

	s.store.notify()
	return rec.ClientID, nil
}

// Get retrieves a record by client ID.
func (s *recordStore) Get(ctx context.Context, clientID string) (*domain.PendingRecord, error) {
	var entry string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT entry FROM records WHERE client_id = ?", clientID).Scan(&entry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying record: %w", err)
	}

	rec, err := domain.DecodeEntry([]byte(entry))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns records matching the predicate, oldest first.
// Rows are read eagerly so the sequence is a stable snapshot.
func (s *recordStore) List(ctx context.Context, predicate domain.RecordPredicate) (iter.Seq[domain.PendingRecord], error) {
	if predicate == nil {
		predicate = domain.AnyRecord
	}

	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	return func(yield func(domain.PendingRecord) bool) {
		for _, r := range records {
			if !predicate(r) {
				continue
			}
			if !yield(r.Clone()) {
				return
			}
		}
	}, nil
}

// Transition moves a record to a new state inside a transaction.
func (s *recordStore) Transition(ctx context.Context, clientID string, to domain.SyncState, errMsg string) error {
	return s.update(ctx, clientID, func(r *domain.PendingRecord) error {
		return r.Apply(to, errMsg)
	})
}

// ScheduleRetry sets the earliest retry time of a failed record.
func (s *recordStore) ScheduleRetry(ctx context.Context, clientID string, at time.Time) error {
	return s.update(ctx, clientID, func(r *domain.PendingRecord) error {
		if r.SyncState != domain.SyncStateFailed {
			return fmt.Errorf("%w: record %s is %s", domain.ErrInvalidInput, clientID, r.SyncState)
		}
		r.NextAttemptAt = at
		return nil
	})
}

// ResetAttempts moves a failed record back to pending with zero attempts.
func (s *recordStore) ResetAttempts(ctx context.Context, clientID string) error {
	return s.update(ctx, clientID, func(r *domain.PendingRecord) error {
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
func (s *recordStore) Purge(ctx context.Context, clientID string) error {
	var state string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT sync_state FROM records WHERE client_id = ?", clientID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying record: %w", err)
	}
	if domain.SyncState(state) != domain.SyncStateSynced {
		return &domain.StoreError{
			Kind:     domain.StoreErrIllegalTransition,
			ClientID: clientID,
			Err:      fmt.Errorf("purge of %s record", state),
		}
	}

	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM records WHERE client_id = ? AND sync_state = ?",
		clientID, string(domain.SyncStateSynced)); err != nil {
		return &domain.StoreError{Kind: domain.StoreErrWriteFailure, ClientID: clientID, Err: err}
	}

	s.store.notify()
	return nil
}

// Counts returns the number of records per state.
func (s *recordStore) Counts(ctx context.Context) (map[domain.SyncState]int, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT sync_state, COUNT(*) FROM records GROUP BY sync_state")
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.SyncState]int, len(domain.AllSyncStates))
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[domain.SyncState(state)] = n
	}
	return counts, rows.Err()
}

// Export writes every readable record as a JSON list of persisted entries.
func (s *recordStore) Export(ctx context.Context, w io.Writer) error {
	records, err := s.loadAll(ctx)
	if err != nil {
		return err
	}
	entries := make([]domain.RecordEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.NewRecordEntry(r))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// Import loads persisted entries in one transaction, skipping client IDs
// that already exist and corrupt entries.
func (s *recordStore) Import(ctx context.Context, r io.Reader) (int, error) {
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

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &domain.StoreError{Kind: domain.StoreErrWriteFailure, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	imported := 0
	for _, rec := range records {
		entry, err := domain.EncodeEntry(rec)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO records (client_id, kind, sync_state, entry, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(client_id) DO NOTHING
		`, rec.ClientID, string(rec.Kind), string(rec.SyncState), string(entry),
			rec.UpdatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return 0, &domain.StoreError{Kind: domain.StoreErrWriteFailure, ClientID: rec.ClientID, Err: err}
		}
		if n, _ := res.RowsAffected(); n > 0 {
			imported++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &domain.StoreError{Kind: domain.StoreErrWriteFailure, Err: err}
	}
	if imported > 0 {
		s.store.notify()
	}
	return imported, nil
}

// Subscribe registers a callback invoked after every committed mutation.
func (s *recordStore) Subscribe(fn func()) func() {
	return s.store.subscribe(fn)
}

// loadAll reads every decodable record in insertion order. Corrupt
// entries are skipped and logged.
func (s *recordStore) loadAll(ctx context.Context) ([]domain.PendingRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT client_id, entry FROM records ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.PendingRecord
	for rows.Next() {
		var clientID, entry string
		if err := rows.Scan(&clientID, &entry); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec, err := domain.DecodeEntry([]byte(entry))
		if err != nil {
			var se *domain.StoreError
			if errors.As(err, &se) && se.ClientID == "" {
				se.ClientID = clientID
			}
			logger.Error("Skipping record: %v", err)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// update applies fn to one record inside a transaction.
func (s *recordStore) update(ctx context.Context, clientID string, fn func(*domain.PendingRecord) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreError{Kind: domain.StoreErrWriteFailure, ClientID: clientID, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var entry string
	err = tx.QueryRowContext(ctx, "SELECT entry FROM records WHERE client_id = ?", clientID).Scan(&entry)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying record: %w", err)
	}

	rec, err := domain.DecodeEntry([]byte(entry))
	if err != nil {
		return err
	}
	if err := fn(&rec); err != nil {
		return err
	}
	rec.UpdatedAt = s.store.now().UTC()

	updated, err := domain.EncodeEntry(rec)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE records SET sync_state = ?, entry = ?, updated_at = ? WHERE client_id = ?
	`, string(rec.SyncState), string(updated), rec.UpdatedAt.Format(time.RFC3339Nano), clientID); err != nil {
		return &domain.StoreError{Kind: domain.StoreErrWriteFailure, ClientID: clientID, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &domain.StoreError{Kind: domain.StoreErrWriteFailure, ClientID: clientID, Err: err}
	}

	s.store.notify()
	return nil
}
