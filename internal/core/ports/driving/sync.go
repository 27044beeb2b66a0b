package driving

import (
	"context"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// SyncCoordinator drains the local record queue against the remote authority.
type SyncCoordinator interface {
	// TriggerSync runs a sync cycle, or joins the one already running.
	// When offline it returns immediately without touching any record.
	TriggerSync(ctx context.Context) error

	// RetryFailed resets exhausted records so the next cycle retries them.
	// Returns the number of records reset.
	RetryFailed(ctx context.Context) (int, error)

	// Status returns the coordinator's activity.
	Status() domain.SyncActivity
}
