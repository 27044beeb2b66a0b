package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/testutil"
)

// transitionLog collects published states.
type transitionLog struct {
	mu     sync.Mutex
	states []domain.ConnectivityState
}

func (l *transitionLog) add(s domain.ConnectivityState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *transitionLog) get() []domain.ConnectivityState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ConnectivityState(nil), l.states...)
}

func startMonitor(t *testing.T, m *ConnectivityMonitor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestConnectivityMonitor_InitiallyOnline(t *testing.T) {
	m := NewConnectivityMonitor(nil, testutil.NewFakeClock(time.Now()), domain.ConnectivitySettings{})
	assert.Equal(t, domain.Online, m.Current())
}

func TestConnectivityMonitor_DebouncedTransition(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	m := NewConnectivityMonitor(nil, clock, domain.ConnectivitySettings{Debounce: 250 * time.Millisecond})
	var log transitionLog
	m.Subscribe(log.add)
	startMonitor(t, m)

	m.Observe(domain.Offline)
	require.True(t, clock.WaitForTimers(1, time.Second))

	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, domain.Online, m.Current(), "not stable for the whole window yet")

	clock.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return m.Current() == domain.Offline }, time.Second, time.Millisecond)
	assert.Equal(t, []domain.ConnectivityState{domain.Offline}, log.get())
}

func TestConnectivityMonitor_OscillationSuppressed(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	m := NewConnectivityMonitor(nil, clock, domain.ConnectivitySettings{Debounce: 250 * time.Millisecond})
	var log transitionLog
	m.Subscribe(log.add)
	startMonitor(t, m)

	m.Observe(domain.Offline)
	require.True(t, clock.WaitForTimers(1, time.Second))
	clock.Advance(100 * time.Millisecond)

	m.Observe(domain.Online)
	require.Eventually(t, func() bool { return clock.PendingTimers() == 0 }, time.Second, time.Millisecond,
		"returning to the published state cancels the window")

	clock.Advance(time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, domain.Online, m.Current())
	assert.Empty(t, log.get())
}

func TestConnectivityMonitor_RestartsWindowOnFlap(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	m := NewConnectivityMonitor(nil, clock, domain.ConnectivitySettings{Debounce: 250 * time.Millisecond})
	startMonitor(t, m)

	m.Observe(domain.Offline)
	require.True(t, clock.WaitForTimers(1, time.Second))
	clock.Advance(200 * time.Millisecond)
	m.Observe(domain.Online)
	require.Eventually(t, func() bool { return clock.PendingTimers() == 0 }, time.Second, time.Millisecond)

	m.Observe(domain.Offline)
	require.True(t, clock.WaitForTimers(1, time.Second))
	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, domain.Online, m.Current(), "window restarted on the second offline")

	clock.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return m.Current() == domain.Offline }, time.Second, time.Millisecond)
}

func TestConnectivityMonitor_ZeroDebounceIsImmediate(t *testing.T) {
	m := NewConnectivityMonitor(nil, testutil.NewFakeClock(time.Now()), domain.ConnectivitySettings{})
	startMonitor(t, m)

	m.Observe(domain.Offline)
	require.Eventually(t, func() bool { return m.Current() == domain.Offline }, time.Second, time.Millisecond)
}

func TestConnectivityMonitor_PollsProbe(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	probe := testutil.NewFakeProbe(domain.Offline)
	m := NewConnectivityMonitor(probe, clock, domain.ConnectivitySettings{PollInterval: 5 * time.Second})
	startMonitor(t, m)

	require.Eventually(t, func() bool { return m.Current() == domain.Offline }, time.Second, time.Millisecond)

	probe.Set(domain.Online, nil)
	require.True(t, clock.WaitForTimers(1, time.Second))
	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return m.Current() == domain.Online }, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, probe.Calls(), 2)
}

func TestConnectivityMonitor_UnknownIsOnline(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	probe := testutil.NewFakeProbe(domain.Offline)
	probe.Set(domain.Offline, domain.ErrConnectivityUnknown)
	m := NewConnectivityMonitor(probe, clock, domain.ConnectivitySettings{PollInterval: 5 * time.Second})
	var log transitionLog
	m.Subscribe(log.add)
	startMonitor(t, m)

	require.Eventually(t, func() bool { return probe.Calls() >= 1 }, time.Second, time.Millisecond)
	require.True(t, clock.WaitForTimers(1, time.Second))
	assert.Equal(t, domain.Online, m.Current())
	assert.Empty(t, log.get())
}

func TestConnectivityMonitor_HandlersInRegistrationOrder(t *testing.T) {
	m := NewConnectivityMonitor(nil, testutil.NewFakeClock(time.Now()), domain.ConnectivitySettings{})

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		m.Subscribe(func(domain.ConnectivityState) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		})
	}
	unsubscribe := m.Subscribe(func(domain.ConnectivityState) { t.Error("unsubscribed handler called") })
	unsubscribe()

	startMonitor(t, m)
	m.Observe(domain.Offline)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestConnectivityMonitor_CloseStopsRun(t *testing.T) {
	m := NewConnectivityMonitor(nil, testutil.NewFakeClock(time.Now()), domain.ConnectivitySettings{})

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	require.NoError(t, m.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
	require.NoError(t, m.Close(), "Close is idempotent")
}

func TestConnectivityMonitor_RefreshSkipsDebounce(t *testing.T) {
	probe := testutil.NewFakeProbe(domain.Offline)
	m := NewConnectivityMonitor(probe, testutil.NewFakeClock(time.Now()), domain.ConnectivitySettings{Debounce: time.Minute})
	var log transitionLog
	m.Subscribe(log.add)

	assert.Equal(t, domain.Offline, m.Refresh(context.Background()))
	assert.Equal(t, []domain.ConnectivityState{domain.Offline}, log.get())
	assert.Equal(t, 1, probe.Calls())
}

func TestConnectivityMonitor_TimedOutCheckIsOffline(t *testing.T) {
	probe := testutil.NewFakeProbe(domain.Online)
	probe.Set(domain.Online, context.DeadlineExceeded)
	m := NewConnectivityMonitor(probe, testutil.NewFakeClock(time.Now()), domain.ConnectivitySettings{})

	assert.Equal(t, domain.Offline, m.Refresh(context.Background()))
}

func TestConnectivityMonitor_RefreshWithoutProbe(t *testing.T) {
	m := NewConnectivityMonitor(nil, nil, domain.ConnectivitySettings{})

	assert.Equal(t, domain.Online, m.Refresh(context.Background()))
}
