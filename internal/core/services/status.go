package services

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

// Ensure StatusPublisher implements the interfaces.
var (
	_ driving.StatusService = (*StatusPublisher)(nil)
	_ driving.RecordQueue   = (*StatusPublisher)(nil)
)

// SyncActivitySource is the part of the coordinator the publisher observes.
type SyncActivitySource interface {
	Status() domain.SyncActivity
	SubscribeActivity(fn func()) (unsubscribe func())
}

// StatusPublisher derives SyncSnapshots from the store, the connectivity
// monitor and the coordinator, and republishes whenever any of them changes.
//
// Every snapshot is computed from a single store read so its counts agree
// with each other. Refreshes are serialised so subscribers see snapshots in
// the order they were computed. Handlers must not block.
type StatusPublisher struct {
	store       driven.RecordStore
	monitor     driving.ConnectivityMonitor
	activity    SyncActivitySource
	maxAttempts func() int

	// refreshMu is held from compute through fan-out.
	refreshMu sync.Mutex

	mu       sync.Mutex
	handlers map[int]func(domain.SyncSnapshot)
	nextID   int
	last     *domain.SyncSnapshot
	unsubs   []func()
}

// NewStatusPublisher creates a publisher and subscribes it to its sources.
// maxAttempts reports the current attempt bound used to count exhausted
// records. activity may be nil when no coordinator is running.
func NewStatusPublisher(
	store driven.RecordStore,
	monitor driving.ConnectivityMonitor,
	activity SyncActivitySource,
	maxAttempts func() int,
) *StatusPublisher {
	if maxAttempts == nil {
		maxAttempts = func() int { return domain.DefaultAppSettings().Sync.MaxAttempts }
	}
	p := &StatusPublisher{
		store:       store,
		monitor:     monitor,
		activity:    activity,
		maxAttempts: maxAttempts,
		handlers:    make(map[int]func(domain.SyncSnapshot)),
	}

	p.unsubs = append(p.unsubs, store.Subscribe(p.refresh))
	if monitor != nil {
		p.unsubs = append(p.unsubs, monitor.Subscribe(func(domain.ConnectivityState) { p.refresh() }))
	}
	if activity != nil {
		p.unsubs = append(p.unsubs, activity.SubscribeActivity(p.refresh))
	}
	return p
}

// GetSnapshot recomputes the snapshot from its constituents.
func (p *StatusPublisher) GetSnapshot(ctx context.Context) (domain.SyncSnapshot, error) {
	records, err := p.store.List(ctx, domain.AnyRecord)
	if err != nil {
		return domain.SyncSnapshot{}, err
	}

	snap := domain.SyncSnapshot{Connectivity: domain.Online}
	if p.monitor != nil {
		snap.Connectivity = p.monitor.Current()
	}

	maxAttempts := p.maxAttempts()
	for r := range records {
		if !r.SyncState.IsOutstanding() {
			continue
		}
		snap.PendingCount++
		if r.SyncState == domain.SyncStateFailed {
			snap.FailedCount++
			if r.IsExhausted(maxAttempts) {
				snap.ExhaustedCount++
			}
		}
	}

	if p.activity != nil {
		act := p.activity.Status()
		snap.ActiveSyncInProgress = act.ActiveSyncInProgress
		snap.LastSyncAt = act.LastSyncAt
	}
	return snap, nil
}

// Subscribe registers a handler called with every changed snapshot.
// The handler receives the current snapshot immediately.
func (p *StatusPublisher) Subscribe(handler func(domain.SyncSnapshot)) func() {
	p.refreshMu.Lock()
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	p.mu.Unlock()

	if snap, err := p.GetSnapshot(context.Background()); err == nil {
		handler(snap)
	}
	p.refreshMu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

// Records lists records in the given states, oldest first.
func (p *StatusPublisher) Records(ctx context.Context, states ...domain.SyncState) ([]domain.PendingRecord, error) {
	pred := domain.AnyRecord
	if len(states) > 0 {
		pred = domain.InStates(states...)
	}
	seq, err := p.store.List(ctx, pred)
	if err != nil {
		return nil, err
	}
	var out []domain.PendingRecord
	for r := range seq {
		out = append(out, r)
	}
	return out, nil
}

// Close detaches the publisher from its sources.
func (p *StatusPublisher) Close() error {
	p.mu.Lock()
	unsubs := p.unsubs
	p.unsubs = nil
	p.handlers = make(map[int]func(domain.SyncSnapshot))
	p.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	return nil
}

// refresh recomputes the snapshot and notifies handlers when it changed.
func (p *StatusPublisher) refresh() {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	snap, err := p.GetSnapshot(context.Background())
	if err != nil {
		logger.Warn("Status refresh failed: %v", err)
		return
	}

	p.mu.Lock()
	if p.last != nil && *p.last == snap {
		p.mu.Unlock()
		return
	}
	p.last = &snap
	ids := make([]int, 0, len(p.handlers))
	for id := range p.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(domain.SyncSnapshot), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, p.handlers[id])
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(snap)
	}
}
