package testutil

import (
	"context"
	"sync"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
)

// LocationFunc answers one CurrentPosition call. call is 1-based.
type LocationFunc func(ctx context.Context, call int) (domain.GeoFix, error)

// FakeLocationProvider is a scripted driven.LocationProvider that counts calls.
type FakeLocationProvider struct {
	// Unsupported makes Supported report false.
	Unsupported bool

	mu      sync.Mutex
	calls   int
	respond LocationFunc
}

var _ driven.LocationProvider = (*FakeLocationProvider)(nil)

// NewFakeLocationProvider creates a provider answering with respond.
func NewFakeLocationProvider(respond LocationFunc) *FakeLocationProvider {
	return &FakeLocationProvider{respond: respond}
}

// Supported reports whether the fake has location capability.
func (p *FakeLocationProvider) Supported() bool {
	return !p.Unsupported
}

// CurrentPosition counts the call and delegates to the script.
func (p *FakeLocationProvider) CurrentPosition(ctx context.Context, _ domain.GeoOptions) (domain.GeoFix, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	respond := p.respond
	p.mu.Unlock()
	return respond(ctx, n)
}

// SetResponse replaces the script.
func (p *FakeLocationProvider) SetResponse(respond LocationFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.respond = respond
}

// Calls returns how many platform requests were made.
func (p *FakeLocationProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Fix answers every call with the given coordinate.
func Fix(lat, lon float64) LocationFunc {
	return func(context.Context, int) (domain.GeoFix, error) {
		return domain.GeoFix{Latitude: lat, Longitude: lon, Accuracy: 5}, nil
	}
}

// Fail answers every call with err.
func Fail(err error) LocationFunc {
	return func(context.Context, int) (domain.GeoFix, error) {
		return domain.GeoFix{}, err
	}
}

// Hang never resolves on its own; it returns only when ctx ends.
func Hang(ctx context.Context, _ int) (domain.GeoFix, error) {
	<-ctx.Done()
	return domain.GeoFix{}, ctx.Err()
}

// FakeProbe is a driven.ReachabilityProbe with a settable answer.
type FakeProbe struct {
	mu    sync.Mutex
	state domain.ConnectivityState
	err   error
	calls int
}

var _ driven.ReachabilityProbe = (*FakeProbe)(nil)

// NewFakeProbe creates a probe reporting state.
func NewFakeProbe(state domain.ConnectivityState) *FakeProbe {
	return &FakeProbe{state: state}
}

// Set changes the reported state and error.
func (p *FakeProbe) Set(state domain.ConnectivityState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state, p.err = state, err
}

// Probe returns the configured answer.
func (p *FakeProbe) Probe(context.Context) (domain.ConnectivityState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.state, p.err
}

// Calls returns how many probes ran.
func (p *FakeProbe) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// FakeMonitor is a driving.ConnectivityMonitor whose state tests set directly.
type FakeMonitor struct {
	mu       sync.Mutex
	state    domain.ConnectivityState
	handlers map[int]func(domain.ConnectivityState)
	nextID   int
}

// NewFakeMonitor creates a monitor in state.
func NewFakeMonitor(state domain.ConnectivityState) *FakeMonitor {
	return &FakeMonitor{state: state, handlers: make(map[int]func(domain.ConnectivityState))}
}

// Current returns the state.
func (m *FakeMonitor) Current() domain.ConnectivityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a transition handler.
func (m *FakeMonitor) Subscribe(handler func(domain.ConnectivityState)) func() {
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

// Set changes the state and notifies handlers synchronously if it changed.
func (m *FakeMonitor) Set(state domain.ConnectivityState) {
	m.mu.Lock()
	if m.state == state {
		m.mu.Unlock()
		return
	}
	m.state = state
	handlers := make([]func(domain.ConnectivityState), 0, len(m.handlers))
	for i := 0; i < m.nextID; i++ {
		if h, ok := m.handlers[i]; ok {
			handlers = append(handlers, h)
		}
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(state)
	}
}

// Subscribers returns the number of registered handlers.
func (m *FakeMonitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}
