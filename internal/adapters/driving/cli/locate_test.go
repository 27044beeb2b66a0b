package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

func TestLocateCmd_Success(t *testing.T) {
	geo := &mockGeo{fix: domain.GeoFix{Latitude: 12.9716, Longitude: 77.5946, Accuracy: 15, Source: domain.GeoSourceDevice}}
	withServices(t, Services{Geolocation: geo})

	out, err := execute(t, "locate")

	require.NoError(t, err)
	assert.Contains(t, out, "12.971600,77.594600 accuracy=15m source=device")
}

func TestLocateCmd_JSON(t *testing.T) {
	geo := &mockGeo{fix: domain.GeoFix{Latitude: 1, Longitude: 2, Source: domain.GeoSourceDevice}}
	withServices(t, Services{Geolocation: geo})

	out, err := execute(t, "locate", "--json")
	require.NoError(t, err)

	var fix domain.GeoFix
	require.NoError(t, json.Unmarshal([]byte(out), &fix))
	assert.Equal(t, 2.0, fix.Longitude)
}

func TestLocateCmd_ErrorHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{"permission", domain.NewGeolocationError(domain.GeoErrPermissionDenied, "denied"), "grant location access"},
		{"unsupported", domain.NewGeolocationError(domain.GeoErrUnsupported, "none"), "geolocation.gpsd_address"},
		{"exhausted", &domain.GeolocationError{Kind: domain.GeoErrTimeout, Exhausted: true}, "retry limit reached"},
		{"timeout", domain.NewGeolocationError(domain.GeoErrTimeout, "slow"), "failed to acquire location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withServices(t, Services{Geolocation: &mockGeo{err: tt.err}})

			_, err := execute(t, "locate")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.hint)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLocateCmd_ManualFallback(t *testing.T) {
	geo := &mockGeo{err: domain.NewGeolocationError(domain.GeoErrUnavailable, "no signal")}
	withServices(t, Services{Geolocation: geo})

	out, err := execute(t, "locate", "--fallback", "10.5,76.2,30")

	require.NoError(t, err)
	assert.Contains(t, out, "using fallback")
	assert.Contains(t, out, "10.500000,76.200000 accuracy=30m source=fallback")
}

func TestLocateCmd_LastFallback(t *testing.T) {
	geo := &mockGeo{
		err:  domain.NewGeolocationError(domain.GeoErrTimeout, "slow"),
		last: &domain.GeoFix{Latitude: 5, Longitude: 6},
	}
	withServices(t, Services{Geolocation: geo})

	out, err := execute(t, "locate", "--fallback", "last")

	require.NoError(t, err)
	assert.Contains(t, out, "5.000000,6.000000")
}

func TestLocateCmd_FallbackUnavailable(t *testing.T) {
	withServices(t, Services{Geolocation: &mockGeo{err: domain.NewGeolocationError(domain.GeoErrTimeout, "slow")}})

	_, err := execute(t, "locate", "--fallback", "last")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = execute(t, "locate", "--fallback", "not-a-coordinate")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
