package driving

import "context"

// Scheduler runs periodic record-sync passes while the process is up.
type Scheduler interface {
	// Start blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for in-flight task runs to finish.
	Stop() error
}
