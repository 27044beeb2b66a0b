package domain

import "time"

// SyncSnapshot is a derived, read-only summary for presentation layers.
type SyncSnapshot struct {
	Connectivity         ConnectivityState `json:"connectivity"`
	PendingCount         int               `json:"pendingCount"`
	ActiveSyncInProgress bool              `json:"activeSyncInProgress"`
	LastSyncAt           time.Time         `json:"lastSyncAt"`

	// FailedCount is the subset of PendingCount currently in the failed state.
	FailedCount int `json:"failedCount"`

	// ExhaustedCount is the subset of FailedCount that will not be retried
	// without manual intervention.
	ExhaustedCount int `json:"exhaustedCount"`
}

// SyncActivity is the coordinator's view of its own progress.
type SyncActivity struct {
	ActiveSyncInProgress bool
	LastSyncAt           time.Time

	// LastCycle is the result of the most recently completed cycle.
	LastCycle CycleResult
}

// Summary returns a short human-readable status line.
func (s SyncSnapshot) Summary() string {
	switch {
	case s.ActiveSyncInProgress:
		return "Syncing data..."
	case s.ExhaustedCount > 0:
		return "Sync failed"
	case s.PendingCount > 0 && !s.Connectivity.IsOnline():
		return "Offline mode"
	case s.PendingCount > 0:
		return "Pending sync"
	default:
		return "All data synced"
	}
}

// CycleResult summarises one sync cycle.
type CycleResult struct {
	StartedAt time.Time
	EndedAt   time.Time
	Waves     int
	Submitted int
	Synced    int
	Failed    int
}
