package domain

import (
	"fmt"
	"time"
)

// SyncSettings tunes the SyncCoordinator.
type SyncSettings struct {
	// PoolSize bounds concurrent submissions within a cycle.
	PoolSize int

	// MaxAttempts is the number of failed submissions after which a record
	// stays failed until manual intervention.
	MaxAttempts int

	// BackoffBase is the delay after the first failure.
	BackoffBase time.Duration

	// BackoffMax caps the exponential backoff.
	BackoffMax time.Duration

	// SubmitTimeout bounds a single remote submission.
	SubmitTimeout time.Duration
}

// Backoff returns the delay before the next attempt after attempts failures.
func (s SyncSettings) Backoff(attempts int) time.Duration {
	if attempts <= 0 || s.BackoffBase <= 0 {
		return 0
	}
	d := s.BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if s.BackoffMax > 0 && d >= s.BackoffMax {
			return s.BackoffMax
		}
	}
	if s.BackoffMax > 0 && d > s.BackoffMax {
		return s.BackoffMax
	}
	return d
}

// RemoteSettings configures the remote authority endpoint.
type RemoteSettings struct {
	// BaseURL of the remote authority. Empty disables submission.
	BaseURL string

	// RatePerSecond is the sustained submission rate.
	RatePerSecond float64

	// Burst is the maximum burst of submissions.
	Burst int
}

// IsConfigured returns true if a remote endpoint is set.
func (r RemoteSettings) IsConfigured() bool {
	return r.BaseURL != ""
}

// ConnectivitySettings tunes the ConnectivityMonitor.
type ConnectivitySettings struct {
	// Debounce is how long a raw signal must be stable before it is published.
	Debounce time.Duration

	// PollInterval is how often the reachability probe runs.
	PollInterval time.Duration

	// ProbeAddress is a host:port dialled to test reachability.
	// Empty means derive it from the remote base URL.
	ProbeAddress string
}

// GeolocationSettings tunes the GeolocationAcquirer.
type GeolocationSettings struct {
	Timeout     time.Duration
	MaximumAge  time.Duration
	Grace       time.Duration
	MaxAttempts int

	// GPSDAddress is the host:port of a gpsd daemon. Empty disables gpsd.
	GPSDAddress string

	// Static is a fixed "lat,lon[,accuracy]" used when no gpsd is configured.
	Static string
}

// Options returns the per-request options derived from settings.
func (g GeolocationSettings) Options() GeoOptions {
	return GeoOptions{
		Timeout:      g.Timeout,
		MaximumAge:   g.MaximumAge,
		HighAccuracy: true,
	}
}

// AppSettings is the aggregate application configuration.
type AppSettings struct {
	DeviceID     string
	Sync         SyncSettings
	Remote       RemoteSettings
	Connectivity ConnectivitySettings
	Geolocation  GeolocationSettings
	Scheduler    SchedulerConfig
}

// DefaultAppSettings returns sensible defaults for field devices.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Sync: SyncSettings{
			PoolSize:      3,
			MaxAttempts:   5,
			BackoffBase:   2 * time.Second,
			BackoffMax:    5 * time.Minute,
			SubmitTimeout: 30 * time.Second,
		},
		Remote: RemoteSettings{
			RatePerSecond: 5,
			Burst:         5,
		},
		Connectivity: ConnectivitySettings{
			Debounce:     250 * time.Millisecond,
			PollInterval: 5 * time.Second,
		},
		Geolocation: GeolocationSettings{
			Timeout:     12 * time.Second,
			MaximumAge:  5 * time.Minute,
			Grace:       1 * time.Second,
			MaxAttempts: 3,
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}

// Validate checks settings for values the services cannot run with.
func (s AppSettings) Validate() error {
	if s.Sync.PoolSize < 1 {
		return fmt.Errorf("%w: sync.pool_size must be at least 1", ErrInvalidInput)
	}
	if s.Sync.MaxAttempts < 1 {
		return fmt.Errorf("%w: sync.max_attempts must be at least 1", ErrInvalidInput)
	}
	if s.Sync.SubmitTimeout <= 0 {
		return fmt.Errorf("%w: sync.submit_timeout must be positive", ErrInvalidInput)
	}
	if s.Geolocation.Timeout <= 0 {
		return fmt.Errorf("%w: geolocation.timeout must be positive", ErrInvalidInput)
	}
	if s.Geolocation.MaxAttempts < 1 {
		return fmt.Errorf("%w: geolocation.max_attempts must be at least 1", ErrInvalidInput)
	}
	if s.Connectivity.Debounce < 0 {
		return fmt.Errorf("%w: connectivity.debounce must not be negative", ErrInvalidInput)
	}
	return s.Scheduler.Validate()
}
