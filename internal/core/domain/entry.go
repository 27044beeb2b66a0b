package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EntryPayload holds the opaque payload bytes of a persisted entry. It is
// written as a base64 string so the bytes survive a JSON round trip
// unchanged. Entries written with the payload embedded as raw JSON still
// decode, keeping the embedded bytes as they appear in the document.
type EntryPayload []byte

// UnmarshalJSON accepts a base64 string or an embedded JSON value.
func (p *EntryPayload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var b []byte
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		*p = b
		return nil
	}
	*p = append((*p)[:0], data...)
	return nil
}

// RecordEntry is the persisted layout of a PendingRecord. Stores write one
// entry per record and Export writes a JSON list of them.
//
// Decoding is forward compatible: unknown fields are ignored and missing
// optional fields take their zero value.
type RecordEntry struct {
	ClientID      string          `json:"clientId"`
	Kind          RecordKind      `json:"kind"`
	Payload       EntryPayload    `json:"payload"`
	SyncState     SyncState       `json:"syncState"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
	LastError     string          `json:"lastError,omitempty"`
	NextAttemptAt *time.Time      `json:"nextAttemptAt,omitempty"`
}

// NewRecordEntry converts a record to its persisted layout.
func NewRecordEntry(r PendingRecord) RecordEntry {
	e := RecordEntry{
		ClientID:  r.ClientID,
		Kind:      r.Kind,
		Payload:   EntryPayload(r.Payload),
		SyncState: r.SyncState,
		Attempts:  r.Attempts,
		CreatedAt: r.CreatedAt.UTC(),
		LastError: r.LastError,
	}
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt.UTC()
		e.UpdatedAt = &t
	}
	if !r.NextAttemptAt.IsZero() {
		t := r.NextAttemptAt.UTC()
		e.NextAttemptAt = &t
	}
	return e
}

// Record validates the entry and converts it back to a PendingRecord.
func (e RecordEntry) Record() (PendingRecord, error) {
	var problems []error
	if err := ParseClientID(e.ClientID); err != nil {
		problems = append(problems, err)
	}
	if !e.Kind.IsValid() {
		problems = append(problems, fmt.Errorf("kind %q", e.Kind))
	}
	if !e.SyncState.IsValid() {
		problems = append(problems, fmt.Errorf("sync state %q", e.SyncState))
	}
	if len(e.Payload) == 0 {
		problems = append(problems, errors.New("missing payload"))
	}
	if e.Attempts < 0 {
		problems = append(problems, fmt.Errorf("attempts %d", e.Attempts))
	}
	if e.CreatedAt.IsZero() {
		problems = append(problems, errors.New("missing createdAt"))
	}
	if len(problems) > 0 {
		return PendingRecord{}, &StoreError{
			Kind:     StoreErrCorruptRecord,
			ClientID: e.ClientID,
			Err:      errors.Join(problems...),
		}
	}

	r := PendingRecord{
		ClientID:  e.ClientID,
		Kind:      e.Kind,
		Payload:   append([]byte(nil), e.Payload...),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.CreatedAt,
		SyncState: e.SyncState,
		Attempts:  e.Attempts,
		LastError: e.LastError,
	}
	if e.UpdatedAt != nil {
		r.UpdatedAt = *e.UpdatedAt
	}
	if e.NextAttemptAt != nil {
		r.NextAttemptAt = *e.NextAttemptAt
	}
	return r, nil
}

// EncodeEntry marshals a record in its persisted layout.
func EncodeEntry(r PendingRecord) ([]byte, error) {
	data, err := json.Marshal(NewRecordEntry(r))
	if err != nil {
		return nil, &StoreError{Kind: StoreErrWriteFailure, ClientID: r.ClientID, Err: err}
	}
	return data, nil
}

// DecodeEntry unmarshals and validates one persisted entry.
// Failures are StoreError{corrupt-record}.
func DecodeEntry(data []byte) (PendingRecord, error) {
	var e RecordEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return PendingRecord{}, &StoreError{Kind: StoreErrCorruptRecord, Err: err}
	}
	return e.Record()
}

// DecodeEntryList decodes a JSON list of entries. Corrupt entries are
// returned separately so callers can skip and report them.
func DecodeEntryList(data []byte) ([]PendingRecord, []error, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: entry list: %w", ErrInvalidInput, err)
	}

	records := make([]PendingRecord, 0, len(raw))
	var corrupt []error
	for _, item := range raw {
		r, err := DecodeEntry(item)
		if err != nil {
			corrupt = append(corrupt, err)
			continue
		}
		records = append(records, r)
	}
	return records, corrupt, nil
}
