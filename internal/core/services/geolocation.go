package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

// Ensure GeolocationAcquirer implements the interface.
var _ driving.GeolocationAcquirer = (*GeolocationAcquirer)(nil)

// GeolocationAcquirer is a bounded-retry wrapper around a platform location API.
//
// At most one platform request is outstanding per acquirer; concurrent
// callers join it. A platform call that outlives its watchdog keeps the
// provider busy, and the next request waits for it to return inside its
// own watchdog rather than starting a second platform call. Every request is guarded by a watchdog of
// Timeout + Grace on the injected clock because platform APIs may hang past
// their own deadline. The acquirer never retries on its own: it classifies
// failures and counts them, and once MaxAttempts failures have accumulated
// it reports an exhausted condition until Reset is called. Permission
// denial is terminal immediately.
type GeolocationAcquirer struct {
	provider    driven.LocationProvider
	clock       driven.Clock
	grace       time.Duration
	maxAttempts int
	defaults    domain.GeoOptions

	// slot is held while a provider call is running.
	slot chan struct{}

	mu       sync.Mutex
	attempts int
	lastErr  *domain.GeolocationError
	denied   *domain.GeolocationError
	lastFix  *domain.GeoFix
	inflight *geoCall
}

// geoCall is one outstanding platform request shared by joined callers.
type geoCall struct {
	done    chan struct{}
	fix     domain.GeoFix
	err     *domain.GeolocationError
	waiters int
	cancel  context.CancelFunc
}

// NewGeolocationAcquirer creates an acquirer.
func NewGeolocationAcquirer(
	provider driven.LocationProvider,
	clock driven.Clock,
	settings domain.GeolocationSettings,
) *GeolocationAcquirer {
	maxAttempts := settings.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultAppSettings().Geolocation.MaxAttempts
	}
	defaults := settings.Options()
	if defaults.Timeout <= 0 {
		defaults.Timeout = domain.DefaultGeoOptions().Timeout
	}
	return &GeolocationAcquirer{
		provider:    provider,
		clock:       clockOrSystem(clock),
		grace:       settings.Grace,
		maxAttempts: maxAttempts,
		defaults:    defaults,
		slot:        make(chan struct{}, 1),
	}
}

// Acquire resolves one fix or fails with *domain.GeolocationError.
// Zero-valued option fields take the acquirer's configured defaults.
// Cancelling ctx resolves this caller with kind cancelled.
func (a *GeolocationAcquirer) Acquire(ctx context.Context, opts domain.GeoOptions) (domain.GeoFix, error) {
	if a.provider == nil || !a.provider.Supported() {
		return domain.GeoFix{}, domain.NewGeolocationError(domain.GeoErrUnsupported,
			"location is not supported on this device")
	}

	if opts.Timeout <= 0 {
		opts.Timeout = a.defaults.Timeout
	}
	if opts.MaximumAge <= 0 {
		opts.MaximumAge = a.defaults.MaximumAge
	}

	a.mu.Lock()
	if a.denied != nil {
		err := *a.denied
		a.mu.Unlock()
		return domain.GeoFix{}, &err
	}
	if a.attempts >= a.maxAttempts {
		err := a.exhaustedLocked()
		a.mu.Unlock()
		return domain.GeoFix{}, err
	}

	call := a.inflight
	if call == nil {
		callCtx, cancel := context.WithCancel(context.Background())
		call = &geoCall{done: make(chan struct{}), cancel: cancel}
		a.inflight = call
		go a.run(callCtx, call, opts)
	}
	call.waiters++
	a.mu.Unlock()

	select {
	case <-call.done:
		if call.err != nil {
			err := *call.err
			return domain.GeoFix{}, &err
		}
		return call.fix, nil
	case <-ctx.Done():
		a.leave(call)
		return domain.GeoFix{}, domain.NewGeolocationError(domain.GeoErrCancelled,
			"location request cancelled")
	}
}

// Reset clears the attempt counter and any terminal condition. Callers use
// it after the underlying condition changed, such as a permission grant.
func (a *GeolocationAcquirer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts = 0
	a.lastErr = nil
	a.denied = nil
}

// Attempts returns the number of failed attempts since the last success or reset.
func (a *GeolocationAcquirer) Attempts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts
}

// LastFix returns the most recent device fix, if any.
func (a *GeolocationAcquirer) LastFix() (domain.GeoFix, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastFix == nil {
		return domain.GeoFix{}, false
	}
	return *a.lastFix, true
}

// Fallback builds an explicit fallback fix. A manual coordinate wins;
// otherwise the last device fix is reused. Both are marked as fallback.
// Returns domain.ErrNotFound when neither is available.
func (a *GeolocationAcquirer) Fallback(manual *domain.GeoFix) (domain.GeoFix, error) {
	if manual != nil {
		fix := *manual
		if err := fix.Validate(); err != nil {
			return domain.GeoFix{}, err
		}
		fix.Source = domain.GeoSourceFallback
		if fix.CapturedAt.IsZero() {
			fix.CapturedAt = a.clock.Now()
		}
		return fix, nil
	}

	last, ok := a.LastFix()
	if !ok {
		return domain.GeoFix{}, fmt.Errorf("no last known location: %w", domain.ErrNotFound)
	}
	last.Source = domain.GeoSourceFallback
	return last, nil
}

// run performs the platform request under the watchdog and settles call.
func (a *GeolocationAcquirer) run(ctx context.Context, call *geoCall, opts domain.GeoOptions) {
	defer call.cancel()

	type result struct {
		fix domain.GeoFix
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		select {
		case a.slot <- struct{}{}:
		case <-ctx.Done():
			resultCh <- result{err: ctx.Err()}
			return
		}
		defer func() { <-a.slot }()

		fix, err := a.provider.CurrentPosition(ctx, opts)
		resultCh <- result{fix: fix, err: err}
	}()

	watchdog := a.clock.NewTimer(opts.Timeout + a.grace)
	defer watchdog.Stop()

	var (
		fix domain.GeoFix
		gerr *domain.GeolocationError
	)
	select {
	case r := <-resultCh:
		if r.err != nil {
			gerr = classifyGeolocationError(r.err)
		} else {
			fix = r.fix
			fix.Source = domain.GeoSourceDevice
			if fix.CapturedAt.IsZero() {
				fix.CapturedAt = a.clock.Now()
			}
		}
	case <-watchdog.C():
		gerr = domain.NewGeolocationError(domain.GeoErrTimeout,
			fmt.Sprintf("location request exceeded %s", opts.Timeout))
	case <-ctx.Done():
		gerr = domain.NewGeolocationError(domain.GeoErrCancelled, "location request cancelled")
	}

	a.settle(call, fix, gerr)
}

// settle records the outcome and releases every joined caller.
func (a *GeolocationAcquirer) settle(call *geoCall, fix domain.GeoFix, gerr *domain.GeolocationError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.inflight == call {
		a.inflight = nil
	}

	switch {
	case gerr == nil:
		a.attempts = 0
		a.lastErr = nil
		a.lastFix = &fix
		call.fix = fix
		logger.Debug("Location acquired: %s", fix)

	case gerr.Kind == domain.GeoErrCancelled:
		// A cancelled request says nothing about the device.
		call.err = gerr

	default:
		a.attempts++
		gerr.Attempts = a.attempts
		if gerr.Kind == domain.GeoErrPermissionDenied {
			gerr.CanRetry = false
			denied := *gerr
			a.denied = &denied
		} else if a.attempts >= a.maxAttempts {
			gerr.CanRetry = false
		}
		a.lastErr = gerr
		call.err = gerr
		logger.Warn("Location attempt %d/%d failed: %v", a.attempts, a.maxAttempts, gerr)
	}

	close(call.done)
}

// leave detaches a cancelled caller; the platform request is cancelled
// once nobody is waiting for it.
func (a *GeolocationAcquirer) leave(call *geoCall) {
	a.mu.Lock()
	defer a.mu.Unlock()
	call.waiters--
	if call.waiters <= 0 {
		if a.inflight == call {
			a.inflight = nil
		}
		call.cancel()
	}
}

// exhaustedLocked builds the exhausted error. Caller must hold a.mu.
func (a *GeolocationAcquirer) exhaustedLocked() *domain.GeolocationError {
	kind := domain.GeoErrUnavailable
	msg := "maximum attempts reached"
	if a.lastErr != nil {
		kind = a.lastErr.Kind
		msg = a.lastErr.Message
	}
	return &domain.GeolocationError{
		Kind:      kind,
		Message:   msg,
		CanRetry:  false,
		Exhausted: true,
		Attempts:  a.attempts,
	}
}

// classifyGeolocationError maps a provider error to a GeolocationError.
// Provider-classified errors pass through; context errors map to timeout
// or cancelled; anything else is unavailable.
func classifyGeolocationError(err error) *domain.GeolocationError {
	var gerr *domain.GeolocationError
	if errors.As(err, &gerr) {
		out := domain.NewGeolocationError(gerr.Kind, gerr.Message)
		return out
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewGeolocationError(domain.GeoErrTimeout, err.Error())
	case errors.Is(err, context.Canceled):
		return domain.NewGeolocationError(domain.GeoErrCancelled, err.Error())
	default:
		return domain.NewGeolocationError(domain.GeoErrUnavailable, err.Error())
	}
}
