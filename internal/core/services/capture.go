package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

// Ensure the capture services implement their interfaces.
var (
	_ driving.CaptureService = (*CaptureService)(nil)
	_ driving.DraftService   = (*DraftService)(nil)
)

// Nudger starts a background sync without waiting for it.
type Nudger interface {
	Nudge()
}

// CaptureService queues records captured by the presentation layer.
type CaptureService struct {
	store   driven.RecordStore
	monitor driving.ConnectivityMonitor
	nudger  Nudger
}

// NewCaptureService creates a capture service. monitor and nudger may be
// nil, in which case records are only queued.
func NewCaptureService(store driven.RecordStore, monitor driving.ConnectivityMonitor, nudger Nudger) *CaptureService {
	return &CaptureService{
		store:   store,
		monitor: monitor,
		nudger:  nudger,
	}
}

// SubmitRecord validates and durably queues a record. It succeeds
// regardless of connectivity; when online a sync is started in the background.
func (s *CaptureService) SubmitRecord(ctx context.Context, kind domain.RecordKind, payload []byte) (string, error) {
	if err := validateCapture(kind, payload); err != nil {
		return "", err
	}

	id, err := s.store.Append(ctx, kind, payload)
	if err != nil {
		return "", err
	}
	logger.Info("Queued %s record %s", kind, id)

	if s.nudger != nil && (s.monitor == nil || s.monitor.Current().IsOnline()) {
		s.nudger.Nudge()
	}
	return id, nil
}

func validateCapture(kind domain.RecordKind, payload []byte) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: record kind %q", domain.ErrInvalidInput, kind)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", domain.ErrInvalidInput)
	}
	if !json.Valid(payload) {
		return fmt.Errorf("%w: payload is not valid JSON", domain.ErrInvalidInput)
	}
	return nil
}

// DraftService manages in-progress captures.
type DraftService struct {
	drafts  driven.DraftStore
	capture driving.CaptureService
	clock   driven.Clock
}

// NewDraftService creates a draft service.
func NewDraftService(drafts driven.DraftStore, capture driving.CaptureService, clock driven.Clock) *DraftService {
	return &DraftService{
		drafts:  drafts,
		capture: capture,
		clock:   clockOrSystem(clock),
	}
}

// SaveDraft stores or replaces the draft for a kind. Drafts may be partial
// but must still be valid JSON.
func (s *DraftService) SaveDraft(ctx context.Context, kind domain.RecordKind, payload []byte) error {
	if err := validateCapture(kind, payload); err != nil {
		return err
	}
	return s.drafts.SaveDraft(ctx, domain.Draft{
		Kind:    kind,
		Payload: payload,
		SavedAt: s.clock.Now(),
	})
}

// LoadDraft returns the draft for a kind, or domain.ErrNotFound.
func (s *DraftService) LoadDraft(ctx context.Context, kind domain.RecordKind) (*domain.Draft, error) {
	return s.drafts.GetDraft(ctx, kind)
}

// DiscardDraft removes the draft for a kind.
func (s *DraftService) DiscardDraft(ctx context.Context, kind domain.RecordKind) error {
	return s.drafts.DeleteDraft(ctx, kind)
}

// FinalizeDraft submits the draft as a record and then discards it.
// The draft is kept if submission fails.
func (s *DraftService) FinalizeDraft(ctx context.Context, kind domain.RecordKind) (string, error) {
	draft, err := s.drafts.GetDraft(ctx, kind)
	if err != nil {
		return "", err
	}

	id, err := s.capture.SubmitRecord(ctx, kind, draft.Payload)
	if err != nil {
		return "", fmt.Errorf("submit draft: %w", err)
	}

	if err := s.drafts.DeleteDraft(ctx, kind); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Record %s queued but draft not discarded: %v", id, err)
	}
	return id, nil
}
