package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrOffline indicates an operation needs connectivity.
	ErrOffline = errors.New("offline")

	// ErrClosed indicates the component has been disposed.
	ErrClosed = errors.New("closed")

	// ErrConnectivityUnknown is returned by probes when the platform cannot
	// report reachability at all. Monitors treat it as online.
	ErrConnectivityUnknown = errors.New("connectivity unknown")

	// ErrRemoteNotConfigured indicates no remote authority endpoint is set.
	ErrRemoteNotConfigured = errors.New("remote authority not configured")
)

// ==================== Geolocation ====================

// GeolocationErrorKind classifies location failures.
type GeolocationErrorKind string

// Geolocation failure kinds.
const (
	GeoErrUnsupported      GeolocationErrorKind = "unsupported"
	GeoErrPermissionDenied GeolocationErrorKind = "permission-denied"
	GeoErrUnavailable      GeolocationErrorKind = "unavailable"
	GeoErrTimeout          GeolocationErrorKind = "timeout"
	GeoErrCancelled        GeolocationErrorKind = "cancelled"
)

// GeolocationError is a classified location failure.
type GeolocationError struct {
	Kind    GeolocationErrorKind
	Message string

	// CanRetry is false when only a user action outside the acquirer can
	// resolve the failure, or when the attempt bound is exhausted.
	CanRetry bool

	// Exhausted is set once the attempt bound has been reached.
	Exhausted bool

	// Attempts is the failed attempt count at the time of the error.
	Attempts int
}

func (e *GeolocationError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("geolocation exhausted after %d attempts (%s): %s", e.Attempts, e.Kind, e.Message)
	}
	return fmt.Sprintf("geolocation %s: %s", e.Kind, e.Message)
}

// Is matches another *GeolocationError of the same kind. A target with
// Exhausted set only matches exhausted errors.
func (e *GeolocationError) Is(target error) bool {
	t, ok := target.(*GeolocationError)
	if !ok {
		return false
	}
	if t.Exhausted {
		return e.Exhausted
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Sentinels for errors.Is against geolocation failures.
var (
	ErrGeoUnsupported      = &GeolocationError{Kind: GeoErrUnsupported}
	ErrGeoPermissionDenied = &GeolocationError{Kind: GeoErrPermissionDenied}
	ErrGeoUnavailable      = &GeolocationError{Kind: GeoErrUnavailable}
	ErrGeoTimeout          = &GeolocationError{Kind: GeoErrTimeout}
	ErrGeoCancelled        = &GeolocationError{Kind: GeoErrCancelled}
	ErrGeoExhausted        = &GeolocationError{Exhausted: true}
)

// NewGeolocationError builds a classified error. CanRetry is derived from kind.
func NewGeolocationError(kind GeolocationErrorKind, message string) *GeolocationError {
	return &GeolocationError{
		Kind:     kind,
		Message:  message,
		CanRetry: kind != GeoErrPermissionDenied && kind != GeoErrUnsupported,
	}
}

// ==================== Sync ====================

// SyncErrorKind classifies submission failures.
type SyncErrorKind string

// Sync failure kinds.
const (
	SyncErrNetwork       SyncErrorKind = "network"
	SyncErrRejected      SyncErrorKind = "rejected-by-server"
	SyncErrSerialization SyncErrorKind = "serialization"
)

// SyncError is a classified remote submission failure.
type SyncError struct {
	Kind SyncErrorKind

	// Permanent marks a rejection that retrying cannot fix.
	Permanent bool

	// StatusCode is the remote status when one was received.
	StatusCode int

	Err error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sync %s: %v", e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is matches another *SyncError of the same kind.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Sentinels for errors.Is against sync failures.
var (
	ErrSyncNetwork       = &SyncError{Kind: SyncErrNetwork}
	ErrSyncRejected      = &SyncError{Kind: SyncErrRejected}
	ErrSyncSerialization = &SyncError{Kind: SyncErrSerialization}
)

// ClassifySyncError wraps an arbitrary submission error. Errors that are
// already classified pass through; anything else is treated as network.
func ClassifySyncError(err error) *SyncError {
	if err == nil {
		return nil
	}
	var se *SyncError
	if errors.As(err, &se) {
		return se
	}
	return &SyncError{Kind: SyncErrNetwork, Err: err}
}

// ==================== Store ====================

// StoreErrorKind classifies local store failures.
type StoreErrorKind string

// Store failure kinds.
const (
	StoreErrCorruptRecord     StoreErrorKind = "corrupt-record"
	StoreErrWriteFailure      StoreErrorKind = "write-failure"
	StoreErrIllegalTransition StoreErrorKind = "illegal-transition"
)

// StoreError is a classified local store failure.
type StoreError struct {
	Kind     StoreErrorKind
	ClientID string
	Err      error
}

func (e *StoreError) Error() string {
	if e.ClientID != "" {
		return fmt.Sprintf("store %s [%s]: %v", e.Kind, e.ClientID, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches another *StoreError of the same kind.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Sentinels for errors.Is against store failures.
var (
	ErrCorruptRecord     = &StoreError{Kind: StoreErrCorruptRecord}
	ErrWriteFailure      = &StoreError{Kind: StoreErrWriteFailure}
	ErrIllegalTransition = &StoreError{Kind: StoreErrIllegalTransition}
)

// CheckTransition returns an illegal-transition StoreError when from -> to
// is not an edge of the record state machine. Development builds panic
// instead.
func CheckTransition(clientID string, from, to SyncState) error {
	if CanTransition(from, to) {
		return nil
	}
	err := &StoreError{
		Kind:     StoreErrIllegalTransition,
		ClientID: clientID,
		Err:      fmt.Errorf("%s -> %s", from, to),
	}
	if strictTransitions {
		panic(err)
	}
	return err
}
