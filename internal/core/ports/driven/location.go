package driven

import (
	"context"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// LocationProvider wraps a platform location API.
//
// CurrentPosition may return *domain.GeolocationError to classify failures
// itself. Any other error is classified as unavailable. Implementations are
// permitted to hang past opts.Timeout; callers guard them with a watchdog.
type LocationProvider interface {
	// Supported reports whether the platform has any location capability.
	Supported() bool

	// CurrentPosition resolves one fix. It must honour ctx cancellation.
	CurrentPosition(ctx context.Context, opts domain.GeoOptions) (domain.GeoFix, error)
}
