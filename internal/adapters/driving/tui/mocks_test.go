package tui

import (
	"context"
	"sync"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// MockStatusService is a mock implementation of driving.StatusService.
type MockStatusService struct {
	mu       sync.Mutex
	snapshot domain.SyncSnapshot
	err      error
	handlers map[int]func(domain.SyncSnapshot)
	next     int
}

func (m *MockStatusService) GetSnapshot(_ context.Context) (domain.SyncSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, m.err
}

func (m *MockStatusService) Subscribe(handler func(domain.SyncSnapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[int]func(domain.SyncSnapshot))
	}
	id := m.next
	m.next++
	m.handlers[id] = handler
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}
}

// Publish sends a snapshot to every subscriber.
func (m *MockStatusService) Publish(snap domain.SyncSnapshot) {
	m.mu.Lock()
	m.snapshot = snap
	handlers := make([]func(domain.SyncSnapshot), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()
	for _, h := range handlers {
		h(snap)
	}
}

// Subscribers returns the number of attached handlers.
func (m *MockStatusService) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// MockRecordQueue is a mock implementation of driving.RecordQueue.
type MockRecordQueue struct {
	records []domain.PendingRecord
	err     error
}

func (m *MockRecordQueue) Records(_ context.Context, _ ...domain.SyncState) ([]domain.PendingRecord, error) {
	return m.records, m.err
}

// MockSyncCoordinator is a mock implementation of driving.SyncCoordinator.
type MockSyncCoordinator struct {
	triggers int
	reset    int
	err      error
	activity domain.SyncActivity
}

func (m *MockSyncCoordinator) TriggerSync(_ context.Context) error {
	m.triggers++
	return m.err
}

func (m *MockSyncCoordinator) RetryFailed(_ context.Context) (int, error) {
	return m.reset, m.err
}

func (m *MockSyncCoordinator) Status() domain.SyncActivity {
	return m.activity
}
