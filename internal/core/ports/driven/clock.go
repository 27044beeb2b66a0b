package driven

import "time"

// Clock abstracts time so backoff, debounce and watchdog behaviour can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of *time.Timer the services use.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}
