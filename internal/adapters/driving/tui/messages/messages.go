// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// SnapshotUpdated carries a new status snapshot from the StatusService.
type SnapshotUpdated struct {
	Snapshot domain.SyncSnapshot
}

// RecordsLoaded carries the queued records for the queue view.
type RecordsLoaded struct {
	Records []domain.PendingRecord
	Err     error
}

// SyncFinished signals a user-triggered sync returned.
type SyncFinished struct {
	Result domain.CycleResult
	Err    error
}

// RetryFinished signals exhausted records were reset.
type RetryFinished struct {
	Reset int
	Err   error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewDashboard shows connectivity and pending counts.
	ViewDashboard ViewType = iota
	// ViewQueue lists queued records.
	ViewQueue
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewDashboard:
		return "dashboard"
	case ViewQueue:
		return "queue"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
