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

// Ensure SyncCoordinator implements the interface.
var _ driving.SyncCoordinator = (*SyncCoordinator)(nil)

// interruptedError is recorded on records found in the syncing state at
// startup, i.e. left behind by a crash mid-submission.
const interruptedError = "interrupted before acknowledgement"

// SyncCoordinator drains the local record queue against the remote authority.
//
// At most one cycle runs at a time; TriggerSync calls made while a cycle is
// running join it. A cycle runs waves until no record is due: each wave
// claims every due record (pending, or failed with its backoff elapsed and
// attempts left), submits them through a bounded worker pool, and records
// the outcome. When nothing is due but failed records still have attempts
// left, the cycle waits on the clock for the earliest backoff deadline, so a
// single trigger carries every record to synced or exhausted while online.
type SyncCoordinator struct {
	store   driven.RecordStore
	remote  driven.RemoteSubmitter
	monitor driving.ConnectivityMonitor
	clock   driven.Clock

	settingsMu sync.RWMutex
	settings   domain.SyncSettings

	mu         sync.Mutex
	cycle      *syncCycle
	lastSyncAt time.Time
	lastCycle  domain.CycleResult
	baseCtx    context.Context
	cancelBase context.CancelFunc
	listeners  map[int]func()
	wake       chan struct{}
	nextID     int
	closed     bool
	wg         sync.WaitGroup
}

// syncCycle is the in-flight cycle shared by joined callers.
type syncCycle struct {
	done chan struct{}
	err  error
}

// NewSyncCoordinator creates a coordinator.
func NewSyncCoordinator(
	store driven.RecordStore,
	remote driven.RemoteSubmitter,
	monitor driving.ConnectivityMonitor,
	clock driven.Clock,
	settings domain.SyncSettings,
) *SyncCoordinator {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &SyncCoordinator{
		store:      store,
		remote:     remote,
		monitor:    monitor,
		clock:      clockOrSystem(clock),
		settings:   normaliseSyncSettings(settings),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		listeners:  make(map[int]func()),
		wake:       make(chan struct{}, 1),
	}
}

func normaliseSyncSettings(s domain.SyncSettings) domain.SyncSettings {
	defaults := domain.DefaultAppSettings().Sync
	if s.PoolSize <= 0 {
		s.PoolSize = defaults.PoolSize
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = defaults.MaxAttempts
	}
	if s.SubmitTimeout <= 0 {
		s.SubmitTimeout = defaults.SubmitTimeout
	}
	return s
}

// UpdateSettings replaces the tuning used by subsequent waves.
func (c *SyncCoordinator) UpdateSettings(settings domain.SyncSettings) {
	c.settingsMu.Lock()
	defer c.settingsMu.Unlock()
	c.settings = normaliseSyncSettings(settings)
}

// Settings returns the current tuning.
func (c *SyncCoordinator) Settings() domain.SyncSettings {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return c.settings
}

// Run recovers records interrupted by a previous crash, subscribes to
// connectivity transitions, and blocks until ctx is done or Close is called.
// A transition to online triggers a sync.
func (c *SyncCoordinator) Run(ctx context.Context) error {
	if err := c.recoverInterrupted(ctx); err != nil {
		return fmt.Errorf("recover interrupted records: %w", err)
	}

	unsubscribe := c.monitor.Subscribe(func(state domain.ConnectivityState) {
		if state.IsOnline() {
			c.Nudge()
		}
	})
	defer unsubscribe()

	c.Nudge()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.baseCtx.Done():
		return nil
	}
}

// Close cancels any running cycle and waits for background work to stop.
func (c *SyncCoordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancelBase()
	c.wg.Wait()
	return nil
}

// Nudge starts a sync in the background if online. It never blocks.
func (c *SyncCoordinator) Nudge() {
	if c.remote == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		if err := c.TriggerSync(c.baseCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Background sync failed: %v", err)
		}
	}()
}

// TriggerSync runs a sync cycle, or joins the one already running.
// When offline it is a no-op and returns nil. ctx bounds only how long the
// caller waits; the cycle itself runs until Close.
func (c *SyncCoordinator) TriggerSync(ctx context.Context) error {
	if c.remote == nil {
		return domain.ErrRemoteNotConfigured
	}
	if !c.monitor.Current().IsOnline() {
		logger.Debug("Offline, skipping sync")
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	cycle := c.cycle
	if cycle == nil {
		cycle = &syncCycle{done: make(chan struct{})}
		c.cycle = cycle
		c.wg.Add(1)
		go c.runCycle(cycle)
	} else {
		// Wake a cycle waiting out a backoff so new work is picked up.
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
	c.mu.Unlock()

	select {
	case <-cycle.done:
		return cycle.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryFailed resets exhausted records to pending with zero attempts.
// This is the manual intervention that resumes retries after the bound.
func (c *SyncCoordinator) RetryFailed(ctx context.Context) (int, error) {
	maxAttempts := c.Settings().MaxAttempts
	records, err := c.store.List(ctx, func(r domain.PendingRecord) bool {
		return r.IsExhausted(maxAttempts)
	})
	if err != nil {
		return 0, fmt.Errorf("list failed records: %w", err)
	}

	reset := 0
	for r := range records {
		if err := c.store.ResetAttempts(ctx, r.ClientID); err != nil {
			return reset, fmt.Errorf("reset %s: %w", r.ClientID, err)
		}
		reset++
	}

	if reset > 0 {
		logger.Info("Reset %d exhausted records", reset)
		c.Nudge()
	}
	return reset, nil
}

// Status returns the coordinator's activity.
func (c *SyncCoordinator) Status() domain.SyncActivity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.SyncActivity{
		ActiveSyncInProgress: c.cycle != nil,
		LastSyncAt:           c.lastSyncAt,
		LastCycle:            c.lastCycle,
	}
}

// SubscribeActivity registers a callback invoked when a cycle starts or ends.
func (c *SyncCoordinator) SubscribeActivity(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// runCycle executes waves until nothing is due, then settles the cycle.
func (c *SyncCoordinator) runCycle(cycle *syncCycle) {
	defer c.wg.Done()
	ctx := c.baseCtx
	c.notifyActivity()

	result := domain.CycleResult{StartedAt: c.clock.Now()}
	logger.Section("Sync")

	var err error
	for {
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		if !c.monitor.Current().IsOnline() {
			logger.Info("Went offline, ending sync cycle")
			break
		}

		var submitted, synced, failed int
		submitted, synced, failed, err = c.runWave(ctx)
		if err != nil {
			break
		}
		if submitted > 0 {
			result.Waves++
			result.Submitted += submitted
			result.Synced += synced
			result.Failed += failed
			continue
		}

		// Nothing due now. Wait out the earliest backoff, if any record
		// still has attempts left.
		var (
			at      time.Time
			waiting bool
		)
		at, waiting, err = c.nextRetryAt(ctx)
		if err != nil || !waiting {
			break
		}
		if !at.After(c.clock.Now()) {
			// Due but unclaimable; leave it for the next trigger.
			break
		}
		if err = c.waitUntil(ctx, at); err != nil {
			break
		}
	}
	result.EndedAt = c.clock.Now()

	logger.Info("Sync cycle complete: %d waves, %d synced, %d failed",
		result.Waves, result.Synced, result.Failed)

	c.mu.Lock()
	c.cycle = nil
	if result.Submitted > 0 {
		c.lastSyncAt = result.EndedAt
	}
	c.lastCycle = result
	cycle.err = err
	close(cycle.done)
	c.mu.Unlock()

	c.notifyActivity()
}

// runWave claims every due record and submits them with bounded concurrency.
func (c *SyncCoordinator) runWave(ctx context.Context) (submitted, synced, failed int, err error) {
	settings := c.Settings()
	now := c.clock.Now()

	due, err := c.store.List(ctx, func(r domain.PendingRecord) bool {
		return r.IsDue(now, settings.MaxAttempts)
	})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("list due records: %w", err)
	}

	// Claim before submitting so no record is handed to two workers.
	var claimed []domain.PendingRecord
	for r := range due {
		if err := c.store.Transition(ctx, r.ClientID, domain.SyncStateSyncing, ""); err != nil {
			logger.Warn("Could not claim %s: %v", r.ClientID, err)
			continue
		}
		claimed = append(claimed, r)
	}
	if len(claimed) == 0 {
		return 0, 0, 0, nil
	}

	logger.Debug("Wave: submitting %d records with pool size %d", len(claimed), settings.PoolSize)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, settings.PoolSize)
	)
	for _, r := range claimed {
		sem <- struct{}{}
		wg.Add(1)
		go func(r domain.PendingRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			ok := c.submitOne(ctx, r, settings)

			mu.Lock()
			defer mu.Unlock()
			if ok {
				synced++
			} else {
				failed++
			}
		}(r)
	}
	wg.Wait()

	return len(claimed), synced, failed, nil
}

// submitOne submits a claimed record and records the outcome.
// It returns true if the record was acknowledged.
func (c *SyncCoordinator) submitOne(ctx context.Context, r domain.PendingRecord, settings domain.SyncSettings) bool {
	submitCtx, cancel := context.WithTimeout(ctx, settings.SubmitTimeout)
	ack, err := c.remote.Submit(submitCtx, r)
	cancel()

	// Record bookkeeping must survive cancellation of the cycle.
	storeCtx := context.WithoutCancel(ctx)

	if err == nil {
		if err := c.store.Transition(storeCtx, r.ClientID, domain.SyncStateSynced, ""); err != nil {
			logger.Error("Mark %s synced: %v", r.ClientID, err)
			return false
		}
		if err := c.store.Purge(storeCtx, r.ClientID); err != nil {
			logger.Warn("Purge %s: %v", r.ClientID, err)
		}
		logger.Debug("Synced %s (receipt %s, duplicate=%t)", r.ClientID, ack.ReceiptID, ack.Duplicate)
		return true
	}

	syncErr := domain.ClassifySyncError(err)
	if errors.Is(err, context.DeadlineExceeded) {
		syncErr = &domain.SyncError{Kind: domain.SyncErrNetwork, Err: err}
	}

	if err := c.store.Transition(storeCtx, r.ClientID, domain.SyncStateFailed, syncErr.Error()); err != nil {
		logger.Error("Mark %s failed: %v", r.ClientID, err)
		return false
	}

	attempts := r.Attempts + 1
	if syncErr.Permanent {
		logger.Warn("Record %s rejected by the remote authority: %v", r.ClientID, syncErr)
	}
	if attempts >= settings.MaxAttempts {
		logger.Warn("Record %s exhausted after %d attempts: %v", r.ClientID, attempts, syncErr)
		return false
	}

	next := c.clock.Now().Add(settings.Backoff(attempts))
	if err := c.store.ScheduleRetry(storeCtx, r.ClientID, next); err != nil {
		logger.Warn("Schedule retry for %s: %v", r.ClientID, err)
	}
	logger.Debug("Record %s failed (attempt %d), next attempt at %s: %v",
		r.ClientID, attempts, next.Format(time.RFC3339), syncErr)
	return false
}

// nextRetryAt returns the earliest backoff deadline among records that
// still have attempts left, or false if none are waiting.
func (c *SyncCoordinator) nextRetryAt(ctx context.Context) (time.Time, bool, error) {
	maxAttempts := c.Settings().MaxAttempts
	waiting, err := c.store.List(ctx, func(r domain.PendingRecord) bool {
		return r.SyncState == domain.SyncStateFailed && !r.IsExhausted(maxAttempts)
	})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("list records awaiting retry: %w", err)
	}

	var earliest time.Time
	found := false
	for r := range waiting {
		if !found || r.NextAttemptAt.Before(earliest) {
			earliest = r.NextAttemptAt
			found = true
		}
	}
	return earliest, found, nil
}

// waitUntil blocks on the injected clock until at, until another trigger
// joins the cycle, or until the coordinator is closed.
func (c *SyncCoordinator) waitUntil(ctx context.Context, at time.Time) error {
	delay := at.Sub(c.clock.Now())
	if delay <= 0 {
		return nil
	}
	logger.Debug("Waiting %s for the next retry wave", delay)
	timer := c.clock.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C():
		return nil
	case <-c.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recoverInterrupted fails records stuck in syncing so they are retried.
func (c *SyncCoordinator) recoverInterrupted(ctx context.Context) error {
	stuck, err := c.store.List(ctx, domain.InStates(domain.SyncStateSyncing))
	if err != nil {
		return err
	}
	for r := range stuck {
		if err := c.store.Transition(ctx, r.ClientID, domain.SyncStateFailed, interruptedError); err != nil {
			return err
		}
		logger.Info("Recovered interrupted record %s", r.ClientID)
	}
	return nil
}

func (c *SyncCoordinator) notifyActivity() {
	c.mu.Lock()
	listeners := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
