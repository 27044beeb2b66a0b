package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

// Ensure ConnectivityMonitor implements the interface.
var (
	_ driving.ConnectivityMonitor   = (*ConnectivityMonitor)(nil)
	_ driving.ConnectivityRefresher = (*ConnectivityMonitor)(nil)
)

// ConnectivityMonitor turns raw reachability observations into debounced
// online/offline transitions.
//
// Observations come from polling a ReachabilityProbe and from Observe.
// A transition is published only once the raw signal has held the new
// value for the whole debounce window. The initial state is online.
type ConnectivityMonitor struct {
	probe        driven.ReachabilityProbe
	clock        driven.Clock
	debounce     time.Duration
	pollInterval time.Duration

	mu       sync.RWMutex
	current  domain.ConnectivityState
	raw      domain.ConnectivityState
	handlers map[int]func(domain.ConnectivityState)
	nextID   int

	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewConnectivityMonitor creates a monitor. probe may be nil when all
// observations are pushed through Observe.
func NewConnectivityMonitor(
	probe driven.ReachabilityProbe,
	clock driven.Clock,
	settings domain.ConnectivitySettings,
) *ConnectivityMonitor {
	return &ConnectivityMonitor{
		probe:        probe,
		clock:        clockOrSystem(clock),
		debounce:     settings.Debounce,
		pollInterval: settings.PollInterval,
		current:      domain.Online,
		raw:          domain.Online,
		handlers:     make(map[int]func(domain.ConnectivityState)),
		signal:       make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Current returns the last published state.
func (m *ConnectivityMonitor) Current() domain.ConnectivityState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers a transition handler. Handlers run on the monitor
// goroutine in registration order and must not block.
func (m *ConnectivityMonitor) Subscribe(handler func(domain.ConnectivityState)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.handlers[id] = handler

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}
}

// Observe pushes a raw observation. It never blocks; observations made
// before the previous one was processed are coalesced to the latest.
func (m *ConnectivityMonitor) Observe(state domain.ConnectivityState) {
	m.mu.Lock()
	m.raw = state
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Run processes observations until ctx is done or Close is called.
func (m *ConnectivityMonitor) Run(ctx context.Context) error {
	var pollC <-chan time.Time
	var pollTimer driven.Timer
	if m.probe != nil && m.pollInterval > 0 {
		m.poll(ctx)
		pollTimer = m.clock.NewTimer(m.pollInterval)
		pollC = pollTimer.C()
	}

	var (
		debounceTimer driven.Timer
		debounceC     <-chan time.Time
		candidate     domain.ConnectivityState
	)
	stopDebounce := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer, debounceC, candidate = nil, nil, ""
	}
	defer func() {
		stopDebounce()
		if pollTimer != nil {
			pollTimer.Stop()
		}
	}()

	handle := func() {
		m.mu.RLock()
		raw, current := m.raw, m.current
		m.mu.RUnlock()

		switch {
		case raw == current:
			// Oscillated back before the window closed.
			stopDebounce()
		case raw == candidate:
			// Still waiting out the window for the same value.
		case m.debounce <= 0:
			stopDebounce()
			m.publish(raw)
		default:
			stopDebounce()
			candidate = raw
			debounceTimer = m.clock.NewTimer(m.debounce)
			debounceC = debounceTimer.C()
		}
	}

	// Pick up anything observed before Run started.
	handle()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return nil
		case <-m.signal:
			handle()
		case <-pollC:
			m.poll(ctx)
			handle()
			pollTimer = m.clock.NewTimer(m.pollInterval)
			pollC = pollTimer.C()
		case <-debounceC:
			state := candidate
			debounceTimer, debounceC, candidate = nil, nil, ""
			m.publish(state)
		}
	}
}

// Refresh probes once and publishes the result without waiting out the
// debounce window. One-shot commands call it instead of Run.
func (m *ConnectivityMonitor) Refresh(ctx context.Context) domain.ConnectivityState {
	if m.probe == nil {
		return m.Current()
	}
	m.poll(ctx)

	m.mu.RLock()
	raw := m.raw
	m.mu.RUnlock()

	m.publish(raw)
	return m.Current()
}

// Close stops Run and drops all handlers.
func (m *ConnectivityMonitor) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.mu.Lock()
		m.handlers = make(map[int]func(domain.ConnectivityState))
		m.mu.Unlock()
	})
	return nil
}

// poll runs the probe once and records the raw result.
// A check that runs out of time counts as offline. A platform that cannot
// report at all is treated as online.
func (m *ConnectivityMonitor) poll(ctx context.Context) {
	timeout := m.pollInterval
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	state, err := m.probe.Probe(probeCtx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return
	case errors.Is(err, context.DeadlineExceeded) || probeCtx.Err() != nil:
		logger.Debug("Connectivity check timed out after %s", timeout)
		state = domain.Offline
	case errors.Is(err, domain.ErrConnectivityUnknown):
		state = domain.Online
	default:
		logger.Debug("Connectivity probe failed, assuming online: %v", err)
		state = domain.Online
	}

	m.mu.Lock()
	m.raw = state
	m.mu.Unlock()
}

// publish commits a transition and notifies handlers outside the lock.
func (m *ConnectivityMonitor) publish(state domain.ConnectivityState) {
	m.mu.Lock()
	if m.current == state {
		m.mu.Unlock()
		return
	}
	m.current = state
	ids := make([]int, 0, len(m.handlers))
	for id := range m.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(domain.ConnectivityState), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, m.handlers[id])
	}
	m.mu.Unlock()

	logger.Info("Connectivity changed: %s", state)
	for _, h := range handlers {
		h(state)
	}
}
