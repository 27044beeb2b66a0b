package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GeoSource records where a fix came from.
type GeoSource string

// Fix provenance.
const (
	// GeoSourceDevice is a fix resolved by the platform location API.
	GeoSourceDevice GeoSource = "device"

	// GeoSourceFallback is a manually entered or last-known coordinate.
	GeoSourceFallback GeoSource = "fallback"
)

// GeoFix is a single resolved position.
type GeoFix struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	CapturedAt time.Time `json:"capturedAt"`
	Source     GeoSource `json:"source"`
}

// Validate checks the coordinate ranges.
func (f GeoFix) Validate() error {
	if f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidInput, f.Latitude)
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidInput, f.Longitude)
	}
	if f.Accuracy < 0 {
		return fmt.Errorf("%w: negative accuracy", ErrInvalidInput)
	}
	return nil
}

// String formats the fix as "lat,lon ±acc m".
func (f GeoFix) String() string {
	return fmt.Sprintf("%.6f,%.6f ±%.0fm (%s)", f.Latitude, f.Longitude, f.Accuracy, f.Source)
}

// ParseCoordinate parses "lat,lon" or "lat,lon,accuracy".
func ParseCoordinate(s string) (GeoFix, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 || len(parts) > 3 {
		return GeoFix{}, fmt.Errorf("%w: coordinate %q must be lat,lon[,accuracy]", ErrInvalidInput, s)
	}

	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return GeoFix{}, fmt.Errorf("%w: coordinate %q: %w", ErrInvalidInput, s, err)
		}
		vals[i] = v
	}

	fix := GeoFix{Latitude: vals[0], Longitude: vals[1]}
	if len(vals) == 3 {
		fix.Accuracy = vals[2]
	}
	if err := fix.Validate(); err != nil {
		return GeoFix{}, err
	}
	return fix, nil
}

// GeoOptions tunes a single acquisition.
type GeoOptions struct {
	// Timeout is passed to the platform as its own deadline.
	Timeout time.Duration

	// MaximumAge is the staleness tolerance for cached platform fixes.
	MaximumAge time.Duration

	// HighAccuracy asks the platform for its best fix.
	HighAccuracy bool
}

// DefaultGeoOptions mirrors the field application's location request.
func DefaultGeoOptions() GeoOptions {
	return GeoOptions{
		Timeout:      12 * time.Second,
		MaximumAge:   5 * time.Minute,
		HighAccuracy: true,
	}
}
