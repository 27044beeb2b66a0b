package driven

import (
	"context"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// ReachabilityProbe reports the raw, undebounced network state.
// It returns domain.ErrConnectivityUnknown when the platform cannot report.
type ReachabilityProbe interface {
	Probe(ctx context.Context) (domain.ConnectivityState, error)
}
