package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil capture service returns error", func(t *testing.T) {
		ports := &Ports{Status: &mockStatusService{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingCaptureService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(requiredPorts())
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Equal(t, DefaultVersion, server.Version())
	})

	t.Run("version option", func(t *testing.T) {
		server, err := NewServer(requiredPorts(), WithVersion("1.2.3"))
		require.NoError(t, err)
		assert.Equal(t, "1.2.3", server.Version())
	})

	t.Run("empty version keeps default", func(t *testing.T) {
		server, err := NewServer(requiredPorts(), WithVersion(""))
		require.NoError(t, err)
		assert.Equal(t, DefaultVersion, server.Version())
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil capture service returns error", func(t *testing.T) {
		ports := &Ports{}
		assert.ErrorIs(t, ports.Validate(), ErrMissingCaptureService)
	})

	t.Run("nil status service returns error", func(t *testing.T) {
		ports := &Ports{Capture: &mockCaptureService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingStatusService)
	})

	t.Run("required ports only is valid", func(t *testing.T) {
		assert.NoError(t, requiredPorts().Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := requiredPorts()
		ports.Queue = &mockRecordQueue{}
		ports.Sync = &mockSyncCoordinator{}
		ports.Location = &mockGeolocation{}
		assert.NoError(t, ports.Validate())
	})
}
