package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
)

var (
	_ driven.LocationProvider = (*StaticProvider)(nil)
	_ driven.LocationProvider = UnsupportedProvider{}
)

// StaticProvider returns a fixed coordinate, for stationary collection
// points and hosts without a receiver.
type StaticProvider struct {
	fix domain.GeoFix
	now func() time.Time
}

// NewStaticProvider parses "lat,lon[,accuracy]".
func NewStaticProvider(coordinate string) (*StaticProvider, error) {
	fix, err := domain.ParseCoordinate(coordinate)
	if err != nil {
		return nil, fmt.Errorf("static location: %w", err)
	}
	return &StaticProvider{fix: fix, now: time.Now}, nil
}

// Supported reports true.
func (p *StaticProvider) Supported() bool { return true }

// CurrentPosition returns the configured coordinate stamped with the current time.
func (p *StaticProvider) CurrentPosition(ctx context.Context, _ domain.GeoOptions) (domain.GeoFix, error) {
	if err := ctx.Err(); err != nil {
		return domain.GeoFix{}, err
	}
	fix := p.fix
	fix.CapturedAt = p.now()
	return fix, nil
}

// UnsupportedProvider is used when no location source is configured.
type UnsupportedProvider struct{}

// Supported reports false.
func (UnsupportedProvider) Supported() bool { return false }

// CurrentPosition always fails with unsupported.
func (UnsupportedProvider) CurrentPosition(context.Context, domain.GeoOptions) (domain.GeoFix, error) {
	return domain.GeoFix{}, domain.NewGeolocationError(domain.GeoErrUnsupported, "no location source configured")
}

// NewLocationProvider picks the provider for the configured settings:
// gpsd when an address is set, then a static coordinate, else unsupported.
func NewLocationProvider(settings domain.GeolocationSettings) (driven.LocationProvider, error) {
	switch {
	case settings.GPSDAddress != "":
		return NewGPSDProvider(settings.GPSDAddress), nil
	case settings.Static != "":
		return NewStaticProvider(settings.Static)
	default:
		return UnsupportedProvider{}, nil
	}
}
