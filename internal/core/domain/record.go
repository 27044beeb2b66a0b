package domain

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RecordKind tags the domain type carried in a record payload.
type RecordKind string

// Well-known record kinds.
const (
	// KindHerbCollection is a geotagged herb collection event.
	KindHerbCollection RecordKind = "herb-collection"

	// KindFarmerRegistration is a farmer registered in the field.
	KindFarmerRegistration RecordKind = "farmer-registration"
)

var kindPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// IsValid returns true if the kind is a well-formed tag.
func (k RecordKind) IsValid() bool {
	return kindPattern.MatchString(string(k))
}

// String returns the string representation.
func (k RecordKind) String() string {
	return string(k)
}

// SyncState is the synchronisation state of a PendingRecord.
type SyncState string

// Record states.
const (
	SyncStatePending SyncState = "pending"
	SyncStateSyncing SyncState = "syncing"
	SyncStateSynced  SyncState = "synced"
	SyncStateFailed  SyncState = "failed"
)

// AllSyncStates lists every state in lifecycle order.
var AllSyncStates = []SyncState{SyncStatePending, SyncStateSyncing, SyncStateSynced, SyncStateFailed}

// IsValid returns true if the state is recognised.
func (s SyncState) IsValid() bool {
	switch s {
	case SyncStatePending, SyncStateSyncing, SyncStateSynced, SyncStateFailed:
		return true
	default:
		return false
	}
}

// IsOutstanding returns true if a record in this state still needs
// confirmation from the remote authority.
func (s SyncState) IsOutstanding() bool {
	return s == SyncStatePending || s == SyncStateSyncing || s == SyncStateFailed
}

// String returns the string representation.
func (s SyncState) String() string {
	return string(s)
}

// CanTransition reports whether from -> to is a legal edge.
//
// failed -> syncing is allowed as the atomic composition of
// failed -> pending -> syncing performed when a retry wave claims a record.
func CanTransition(from, to SyncState) bool {
	switch from {
	case SyncStatePending:
		return to == SyncStateSyncing
	case SyncStateSyncing:
		return to == SyncStateSynced || to == SyncStateFailed
	case SyncStateFailed:
		return to == SyncStatePending || to == SyncStateSyncing
	default:
		return false
	}
}

// PendingRecord is a captured domain record awaiting confirmation.
type PendingRecord struct {
	// ClientID is assigned at creation and never reused.
	ClientID string

	// Kind identifies the domain record type.
	Kind RecordKind

	// Payload is opaque to the core.
	Payload []byte

	// CreatedAt is when the record was captured.
	CreatedAt time.Time

	// UpdatedAt is when the record last changed state.
	UpdatedAt time.Time

	// SyncState is the current synchronisation state.
	SyncState SyncState

	// Attempts counts completed submissions, failed or acknowledged.
	Attempts int

	// LastError is the message of the most recent submission failure.
	LastError string

	// NextAttemptAt is the earliest time a retry wave may claim the record.
	// Zero means immediately.
	NextAttemptAt time.Time
}

// IsExhausted returns true if the record failed and has used all its attempts.
func (r *PendingRecord) IsExhausted(maxAttempts int) bool {
	return r.SyncState == SyncStateFailed && maxAttempts > 0 && r.Attempts >= maxAttempts
}

// IsDue returns true if a sync wave may claim the record at now.
func (r *PendingRecord) IsDue(now time.Time, maxAttempts int) bool {
	switch r.SyncState {
	case SyncStatePending:
		return true
	case SyncStateFailed:
		if r.IsExhausted(maxAttempts) {
			return false
		}
		return r.NextAttemptAt.IsZero() || !r.NextAttemptAt.After(now)
	default:
		return false
	}
}

// Apply moves the record to state to, enforcing the state machine.
// A completed submission (synced or failed) counts as an attempt; a failure
// also records errMsg.
func (r *PendingRecord) Apply(to SyncState, errMsg string) error {
	if err := CheckTransition(r.ClientID, r.SyncState, to); err != nil {
		return err
	}
	switch to {
	case SyncStateSynced:
		r.Attempts++
	case SyncStateFailed:
		r.Attempts++
		r.LastError = errMsg
	}
	r.SyncState = to
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored payloads.
func (r PendingRecord) Clone() PendingRecord {
	if r.Payload != nil {
		p := make([]byte, len(r.Payload))
		copy(p, r.Payload)
		r.Payload = p
	}
	return r
}

// RecordPredicate filters records in RecordStore.List.
type RecordPredicate func(PendingRecord) bool

// AnyRecord matches every record.
func AnyRecord(PendingRecord) bool { return true }

// InStates matches records in any of the given states.
func InStates(states ...SyncState) RecordPredicate {
	return func(r PendingRecord) bool {
		for _, s := range states {
			if r.SyncState == s {
				return true
			}
		}
		return false
	}
}

// OfKind matches records of the given kind.
func OfKind(kind RecordKind) RecordPredicate {
	return func(r PendingRecord) bool {
		return r.Kind == kind
	}
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewClientID returns a new lexically sortable client identifier.
func NewClientID(now time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), idEntropy).String()
}

// ParseClientID validates a client identifier.
func ParseClientID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("%w: client id %q: %w", ErrInvalidInput, id, err)
	}
	return nil
}
