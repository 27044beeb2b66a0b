package services

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyDeviceID           = "device.id"
	keySyncPoolSize       = "sync.pool_size"
	keySyncMaxAttempts    = "sync.max_attempts"
	keySyncBackoffBase    = "sync.backoff_base"
	keySyncBackoffMax     = "sync.backoff_max"
	keySyncSubmitTimeout  = "sync.submit_timeout"
	keyRemoteBaseURL      = "remote.base_url"
	keyRemoteRate         = "remote.rate_per_second"
	keyRemoteBurst        = "remote.burst"
	keyConnDebounce       = "connectivity.debounce"
	keyConnPollInterval   = "connectivity.poll_interval"
	keyConnProbeAddress   = "connectivity.probe_address"
	keyGeoTimeout         = "geolocation.timeout"
	keyGeoMaximumAge      = "geolocation.maximum_age"
	keyGeoGrace           = "geolocation.grace"
	keyGeoMaxAttempts     = "geolocation.max_attempts"
	keyGeoGPSDAddress     = "geolocation.gpsd_address"
	keyGeoStatic          = "geolocation.static"
	keySchedulerEnabled   = "scheduler.enabled"
	keySchedulerSyncOn    = "scheduler.record_sync.enabled"
	keySchedulerSyncEvery = "scheduler.record_sync.interval"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
)

var settingKinds = map[string]settingKind{
	keyDeviceID:           kindString,
	keySyncPoolSize:       kindInt,
	keySyncMaxAttempts:    kindInt,
	keySyncBackoffBase:    kindDuration,
	keySyncBackoffMax:     kindDuration,
	keySyncSubmitTimeout:  kindDuration,
	keyRemoteBaseURL:      kindString,
	keyRemoteRate:         kindFloat,
	keyRemoteBurst:        kindInt,
	keyConnDebounce:       kindDuration,
	keyConnPollInterval:   kindDuration,
	keyConnProbeAddress:   kindString,
	keyGeoTimeout:         kindDuration,
	keyGeoMaximumAge:      kindDuration,
	keyGeoGrace:           kindDuration,
	keyGeoMaxAttempts:     kindInt,
	keyGeoGPSDAddress:     kindString,
	keyGeoStatic:          kindString,
	keySchedulerEnabled:   kindBool,
	keySchedulerSyncOn:    kindBool,
	keySchedulerSyncEvery: kindDuration,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// A device ID is generated and persisted on first use.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	deviceID, err := s.ensureDeviceID()
	if err != nil {
		return nil, err
	}

	settings := &domain.AppSettings{
		DeviceID: deviceID,
		Sync: domain.SyncSettings{
			PoolSize:      s.getInt(keySyncPoolSize, defaults.Sync.PoolSize),
			MaxAttempts:   s.getInt(keySyncMaxAttempts, defaults.Sync.MaxAttempts),
			BackoffBase:   s.getDuration(keySyncBackoffBase, defaults.Sync.BackoffBase),
			BackoffMax:    s.getDuration(keySyncBackoffMax, defaults.Sync.BackoffMax),
			SubmitTimeout: s.getDuration(keySyncSubmitTimeout, defaults.Sync.SubmitTimeout),
		},
		Remote: domain.RemoteSettings{
			BaseURL:       s.configStore.GetString(keyRemoteBaseURL), // No default - empty disables submission
			RatePerSecond: s.getFloat(keyRemoteRate, defaults.Remote.RatePerSecond),
			Burst:         s.getInt(keyRemoteBurst, defaults.Remote.Burst),
		},
		Connectivity: domain.ConnectivitySettings{
			Debounce:     s.getDuration(keyConnDebounce, defaults.Connectivity.Debounce),
			PollInterval: s.getDuration(keyConnPollInterval, defaults.Connectivity.PollInterval),
			ProbeAddress: s.configStore.GetString(keyConnProbeAddress),
		},
		Geolocation: domain.GeolocationSettings{
			Timeout:     s.getDuration(keyGeoTimeout, defaults.Geolocation.Timeout),
			MaximumAge:  s.getDuration(keyGeoMaximumAge, defaults.Geolocation.MaximumAge),
			Grace:       s.getDuration(keyGeoGrace, defaults.Geolocation.Grace),
			MaxAttempts: s.getInt(keyGeoMaxAttempts, defaults.Geolocation.MaxAttempts),
			GPSDAddress: s.configStore.GetString(keyGeoGPSDAddress),
			Static:      s.configStore.GetString(keyGeoStatic),
		},
		Scheduler: s.GetSchedulerConfig(),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return domain.ErrInvalidInput
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keySyncPoolSize, settings.Sync.PoolSize},
		{keySyncMaxAttempts, settings.Sync.MaxAttempts},
		{keySyncBackoffBase, settings.Sync.BackoffBase.String()},
		{keySyncBackoffMax, settings.Sync.BackoffMax.String()},
		{keySyncSubmitTimeout, settings.Sync.SubmitTimeout.String()},
		{keyRemoteBaseURL, settings.Remote.BaseURL},
		{keyRemoteRate, settings.Remote.RatePerSecond},
		{keyRemoteBurst, settings.Remote.Burst},
		{keyConnDebounce, settings.Connectivity.Debounce.String()},
		{keyConnPollInterval, settings.Connectivity.PollInterval.String()},
		{keyConnProbeAddress, settings.Connectivity.ProbeAddress},
		{keyGeoTimeout, settings.Geolocation.Timeout.String()},
		{keyGeoMaximumAge, settings.Geolocation.MaximumAge.String()},
		{keyGeoGrace, settings.Geolocation.Grace.String()},
		{keyGeoMaxAttempts, settings.Geolocation.MaxAttempts},
		{keyGeoGPSDAddress, settings.Geolocation.GPSDAddress},
		{keyGeoStatic, settings.Geolocation.Static},
	}
	if settings.DeviceID != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyDeviceID, settings.DeviceID})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set updates a single setting by its dotted key, parsing value by the
// key's type.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindString:
		parsed = value
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s must be a duration like 30s", domain.ErrInvalidInput, key)
		}
		parsed = value
	}

	if key == keyGeoStatic && value != "" {
		if _, err := domain.ParseCoordinate(value); err != nil {
			return err
		}
	}

	return s.configStore.Set(key, parsed)
}

// Keys returns every supported setting key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// ConfigPath returns the location of the backing config store.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()

	// Master switch
	if _, exists := s.configStore.Get(keySchedulerEnabled); exists {
		defaults.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}

	taskCfg := defaults.TaskConfigs[domain.TaskIDRecordSync]
	if _, exists := s.configStore.Get(keySchedulerSyncOn); exists {
		taskCfg.Enabled = s.configStore.GetBool(keySchedulerSyncOn)
	}
	taskCfg.Interval = s.getDuration(keySchedulerSyncEvery, taskCfg.Interval)
	defaults.TaskConfigs[domain.TaskIDRecordSync] = taskCfg

	return defaults
}

// ensureDeviceID returns the persisted device ID, generating one if needed.
func (s *SettingsService) ensureDeviceID() (string, error) {
	if id := s.configStore.GetString(keyDeviceID); id != "" {
		return id, nil
	}
	id := uuid.New().String()
	if err := s.configStore.Set(keyDeviceID, id); err != nil {
		return "", fmt.Errorf("save device id: %w", err)
	}
	return id, nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getDuration reads a duration string like "45s" or "5m".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
