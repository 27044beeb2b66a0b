package tui

import "errors"

var (
	// ErrMissingStatusService is returned by NewApp without a status port.
	ErrMissingStatusService = errors.New("tui: status service is required")

	// ErrInvalidPorts is returned for a nil Ports.
	ErrInvalidPorts = errors.New("tui: invalid ports configuration")

	// ErrSyncUnavailable is shown when sync or retry is requested but no
	// sync coordinator was wired.
	ErrSyncUnavailable = errors.New("tui: sync is not available in this mode")
)
