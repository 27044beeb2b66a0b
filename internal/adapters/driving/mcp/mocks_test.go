package mcp

import (
	"context"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// mockCaptureService is a mock implementation of driving.CaptureService.
type mockCaptureService struct {
	id      string
	err     error
	kind    domain.RecordKind
	payload []byte
}

func (m *mockCaptureService) SubmitRecord(_ context.Context, kind domain.RecordKind, payload []byte) (string, error) {
	m.kind = kind
	m.payload = payload
	return m.id, m.err
}

// mockStatusService is a mock implementation of driving.StatusService.
type mockStatusService struct {
	snapshot domain.SyncSnapshot
	err      error
}

func (m *mockStatusService) GetSnapshot(_ context.Context) (domain.SyncSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockStatusService) Subscribe(handler func(domain.SyncSnapshot)) func() {
	handler(m.snapshot)
	return func() {}
}

// mockRecordQueue is a mock implementation of driving.RecordQueue.
type mockRecordQueue struct {
	records []domain.PendingRecord
	states  []domain.SyncState
	err     error
}

func (m *mockRecordQueue) Records(_ context.Context, states ...domain.SyncState) ([]domain.PendingRecord, error) {
	m.states = states
	return m.records, m.err
}

// mockSyncCoordinator is a mock implementation of driving.SyncCoordinator.
type mockSyncCoordinator struct {
	triggers int
	reset    int
	err      error
	activity domain.SyncActivity
}

func (m *mockSyncCoordinator) TriggerSync(_ context.Context) error {
	m.triggers++
	return m.err
}

func (m *mockSyncCoordinator) RetryFailed(_ context.Context) (int, error) {
	return m.reset, m.err
}

func (m *mockSyncCoordinator) Status() domain.SyncActivity {
	return m.activity
}

// mockGeolocation is a mock implementation of driving.GeolocationAcquirer.
type mockGeolocation struct {
	fix  domain.GeoFix
	err  error
	opts domain.GeoOptions
}

func (m *mockGeolocation) Acquire(_ context.Context, opts domain.GeoOptions) (domain.GeoFix, error) {
	m.opts = opts
	return m.fix, m.err
}

func (m *mockGeolocation) Reset() {}

func (m *mockGeolocation) Attempts() int { return 0 }

func (m *mockGeolocation) Fallback(manual *domain.GeoFix) (domain.GeoFix, error) {
	if manual == nil {
		return domain.GeoFix{}, domain.ErrNotFound
	}
	return *manual, nil
}

func requiredPorts() *Ports {
	return &Ports{
		Capture: &mockCaptureService{},
		Status:  &mockStatusService{},
	}
}
