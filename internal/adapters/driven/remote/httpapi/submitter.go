package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
)

// DefaultTimeout bounds a request when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// Ensure Submitter implements the interface.
var _ driven.RemoteSubmitter = (*Submitter)(nil)

// submission is the request body sent for each record.
type submission struct {
	ClientID  string          `json:"clientId"`
	Kind      string          `json:"kind"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

// receipt is the acknowledgement body.
type receipt struct {
	ReceiptID string `json:"receiptId"`
}

// Submitter posts records to the remote authority.
type Submitter struct {
	endpoint    string
	deviceID    string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) { s.httpClient = c }
}

// WithDeviceID sends the device ID with every submission.
func WithDeviceID(id string) Option {
	return func(s *Submitter) { s.deviceID = id }
}

// WithRateLimiter replaces the limiter built from settings.
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *Submitter) { s.rateLimiter = l }
}

// NewSubmitter creates a submitter for the configured endpoint.
// Returns domain.ErrRemoteNotConfigured when no base URL is set.
func NewSubmitter(settings domain.RemoteSettings, opts ...Option) (*Submitter, error) {
	if !settings.IsConfigured() {
		return nil, domain.ErrRemoteNotConfigured
	}
	base, err := url.Parse(settings.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: remote base url %q", domain.ErrInvalidInput, settings.BaseURL)
	}

	s := &Submitter{
		endpoint:    strings.TrimRight(base.String(), "/") + "/records",
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		rateLimiter: NewRateLimiter(settings.RatePerSecond, settings.Burst),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Endpoint returns the URL records are posted to.
func (s *Submitter) Endpoint() string {
	return s.endpoint
}

// Submit sends one record. 2xx and 409 are acknowledgements; failures are
// returned as *domain.SyncError.
func (s *Submitter) Submit(ctx context.Context, record domain.PendingRecord) (driven.Ack, error) {
	if !json.Valid(record.Payload) {
		return driven.Ack{}, &domain.SyncError{
			Kind: domain.SyncErrSerialization,
			Err:  fmt.Errorf("record %s payload is not valid JSON", record.ClientID),
		}
	}
	body, err := json.Marshal(submission{
		ClientID:  record.ClientID,
		Kind:      record.Kind.String(),
		CreatedAt: record.CreatedAt.UTC(),
		Payload:   record.Payload,
	})
	if err != nil {
		return driven.Ack{}, &domain.SyncError{Kind: domain.SyncErrSerialization, Err: err}
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return driven.Ack{}, &domain.SyncError{Kind: domain.SyncErrNetwork, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return driven.Ack{}, &domain.SyncError{Kind: domain.SyncErrSerialization, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", record.ClientID)
	if s.deviceID != "" {
		req.Header.Set("X-Device-Id", s.deviceID)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return driven.Ack{}, &domain.SyncError{Kind: domain.SyncErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return driven.Ack{}, &domain.SyncError{Kind: domain.SyncErrNetwork, StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		// Already received under this idempotency key.
		var r receipt
		_ = json.Unmarshal(respBody, &r)
		return driven.Ack{ReceiptID: r.ReceiptID, Duplicate: true}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var r receipt
		if err := json.Unmarshal(respBody, &r); err != nil {
			return driven.Ack{}, &domain.SyncError{
				Kind:       domain.SyncErrSerialization,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("decode receipt: %w", err),
			}
		}
		if r.ReceiptID == "" {
			return driven.Ack{}, &domain.SyncError{
				Kind:       domain.SyncErrSerialization,
				StatusCode: resp.StatusCode,
				Err:        errors.New("receipt without receiptId"),
			}
		}
		return driven.Ack{ReceiptID: r.ReceiptID}, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		s.rateLimiter.RecordRateLimitError(parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}

	return driven.Ack{}, classifyStatus(resp.StatusCode, string(respBody))
}
