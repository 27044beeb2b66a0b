package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/herbtrace/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Sync, settings.Sync)
	assert.Equal(t, defaults.Connectivity, settings.Connectivity)
	assert.Equal(t, defaults.Geolocation, settings.Geolocation)
	assert.Equal(t, defaults.Remote, settings.Remote)
	assert.False(t, settings.Remote.IsConfigured())
	assert.Equal(t, defaults.Scheduler, settings.Scheduler)
}

func TestSettingsService_DeviceIDGeneratedOnce(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	first, err := service.Get()
	require.NoError(t, err)
	_, err = uuid.Parse(first.DeviceID)
	require.NoError(t, err)

	second, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, first.DeviceID, second.DeviceID)
	assert.Equal(t, first.DeviceID, store.GetString("device.id"))
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("sync.pool_size", 6)
	_ = store.Set("sync.backoff_base", "500ms")
	_ = store.Set("remote.base_url", "https://authority.example")
	_ = store.Set("remote.rate_per_second", 1.5)
	_ = store.Set("connectivity.debounce", "1s")
	_ = store.Set("geolocation.static", "12.9,77.5")
	_ = store.Set("scheduler.record_sync.interval", "30s")
	_ = store.Set("scheduler.record_sync.enabled", false)

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)

	assert.Equal(t, 6, settings.Sync.PoolSize)
	assert.Equal(t, 500*time.Millisecond, settings.Sync.BackoffBase)
	assert.Equal(t, "https://authority.example", settings.Remote.BaseURL)
	assert.InDelta(t, 1.5, settings.Remote.RatePerSecond, 1e-9)
	assert.Equal(t, time.Second, settings.Connectivity.Debounce)
	assert.Equal(t, "12.9,77.5", settings.Geolocation.Static)

	task := settings.Scheduler.GetTaskConfig(domain.TaskIDRecordSync)
	assert.Equal(t, 30*time.Second, task.Interval)
	assert.False(t, task.Enabled)
}

func TestSettingsService_Get_InvalidDurationFallsBack(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("sync.submit_timeout", "soon")

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, settings.Sync.SubmitTimeout)
}

func TestSettingsService_Set(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NoError(t, service.Set("sync.max_attempts", "7"))
	require.NoError(t, service.Set("remote.rate_per_second", "0.5"))
	require.NoError(t, service.Set("scheduler.enabled", "false"))
	require.NoError(t, service.Set("sync.backoff_max", "10m"))
	require.NoError(t, service.Set("geolocation.static", "1.5,2.5,10"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, settings.Sync.MaxAttempts)
	assert.InDelta(t, 0.5, settings.Remote.RatePerSecond, 1e-9)
	assert.False(t, settings.Scheduler.Enabled)
	assert.Equal(t, 10*time.Minute, settings.Sync.BackoffMax)
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	tests := []struct {
		key, value string
	}{
		{"unknown.key", "1"},
		{"sync.pool_size", "three"},
		{"remote.rate_per_second", "fast"},
		{"scheduler.enabled", "maybe"},
		{"sync.backoff_base", "2 seconds"},
		{"geolocation.static", "200,10"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.ErrorIs(t, service.Set(tt.key, tt.value), domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := domain.DefaultAppSettings()
	settings.Sync.PoolSize = 2
	settings.Sync.BackoffBase = 3 * time.Second
	settings.Remote.BaseURL = "https://authority.example"
	settings.Geolocation.GPSDAddress = "localhost:2947"
	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, got.Sync.PoolSize)
	assert.Equal(t, 3*time.Second, got.Sync.BackoffBase)
	assert.Equal(t, "https://authority.example", got.Remote.BaseURL)
	assert.Equal(t, "localhost:2947", got.Geolocation.GPSDAddress)
}

func TestSettingsService_SaveValidates(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings := domain.DefaultAppSettings()
	settings.Sync.PoolSize = 0
	assert.ErrorIs(t, service.Save(&settings), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.Save(nil), domain.ErrInvalidInput)
}

func TestSettingsService_Validate(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)
	require.NoError(t, service.Validate())

	_ = store.Set("geolocation.timeout", "-1s")
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)
}

func TestSettingsService_Keys(t *testing.T) {
	keys := NewSettingsService(memory.NewConfigStore()).Keys()

	assert.Contains(t, keys, "sync.pool_size")
	assert.Contains(t, keys, "remote.base_url")
	assert.Contains(t, keys, "geolocation.gpsd_address")
	assert.IsIncreasing(t, keys)
}

func TestSettingsService_ConfigPath(t *testing.T) {
	assert.Equal(t, ":memory:", NewSettingsService(memory.NewConfigStore()).ConfigPath())
}
