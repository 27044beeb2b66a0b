package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

func testRecord() domain.PendingRecord {
	return domain.PendingRecord{
		ClientID:  "01J8Z3K4M5N6P7Q8R9S0T1V2W3",
		Kind:      domain.KindHerbCollection,
		Payload:   []byte(`{"species":"Withania somnifera","weightKg":2.5}`),
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		SyncState: domain.SyncStateSyncing,
	}
}

func newTestSubmitter(t *testing.T, handler http.HandlerFunc) *Submitter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewSubmitter(domain.RemoteSettings{BaseURL: server.URL + "/api/", RatePerSecond: 0, Burst: 1},
		WithDeviceID("device-1"))
	require.NoError(t, err)
	return s
}

func TestNewSubmitter_NotConfigured(t *testing.T) {
	_, err := NewSubmitter(domain.RemoteSettings{})
	assert.ErrorIs(t, err, domain.ErrRemoteNotConfigured)
}

func TestNewSubmitter_InvalidURL(t *testing.T) {
	_, err := NewSubmitter(domain.RemoteSettings{BaseURL: "not a url"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewSubmitter_Endpoint(t *testing.T) {
	s, err := NewSubmitter(domain.RemoteSettings{BaseURL: "https://authority.example/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "https://authority.example/v1/records", s.Endpoint())
}

func TestSubmit_Ack(t *testing.T) {
	rec := testRecord()
	s := newTestSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/records", r.URL.Path)
		assert.Equal(t, rec.ClientID, r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "device-1", r.Header.Get("X-Device-Id"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			ClientID  string          `json:"clientId"`
			Kind      string          `json:"kind"`
			CreatedAt time.Time       `json:"createdAt"`
			Payload   json.RawMessage `json:"payload"`
		}
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, rec.ClientID, body.ClientID)
		assert.Equal(t, "herb-collection", body.Kind)
		assert.True(t, rec.CreatedAt.Equal(body.CreatedAt))
		assert.JSONEq(t, string(rec.Payload), string(body.Payload))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"receiptId":"R-100"}`))
	})

	ack, err := s.Submit(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "R-100", ack.ReceiptID)
	assert.False(t, ack.Duplicate)
}

func TestSubmit_ConflictIsDuplicateAck(t *testing.T) {
	s := newTestSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"receiptId":"R-7"}`))
	})

	ack, err := s.Submit(context.Background(), testRecord())
	require.NoError(t, err)
	assert.True(t, ack.Duplicate)
	assert.Equal(t, "R-7", ack.ReceiptID)
}

func TestSubmit_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		kind      domain.SyncErrorKind
		permanent bool
	}{
		{"bad request", http.StatusBadRequest, domain.SyncErrRejected, true},
		{"unprocessable", http.StatusUnprocessableEntity, domain.SyncErrRejected, true},
		{"forbidden", http.StatusForbidden, domain.SyncErrRejected, true},
		{"request timeout", http.StatusRequestTimeout, domain.SyncErrNetwork, false},
		{"server error", http.StatusInternalServerError, domain.SyncErrNetwork, false},
		{"bad gateway", http.StatusBadGateway, domain.SyncErrNetwork, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope"))
			})

			_, err := s.Submit(context.Background(), testRecord())
			require.Error(t, err)

			var se *domain.SyncError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.kind, se.Kind)
			assert.Equal(t, tt.permanent, se.Permanent)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Contains(t, se.Error(), "nope")
		})
	}
}

func TestSubmit_TooManyRequestsPauses(t *testing.T) {
	s := newTestSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := s.Submit(context.Background(), testRecord())
	assert.ErrorIs(t, err, domain.ErrSyncNetwork)

	paused := s.rateLimiter.PausedUntil()
	require.False(t, paused.IsZero())
	assert.WithinDuration(t, time.Now().Add(120*time.Second), paused, 5*time.Second)

	// The next submission waits out the pause; a short deadline fails it.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Submit(ctx, testRecord())
	assert.ErrorIs(t, err, domain.ErrSyncNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_MalformedReceipt(t *testing.T) {
	s := newTestSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>ok</html>`))
	})

	_, err := s.Submit(context.Background(), testRecord())
	assert.ErrorIs(t, err, domain.ErrSyncSerialization)
}

func TestSubmit_ReceiptMissingID(t *testing.T) {
	s := newTestSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := s.Submit(context.Background(), testRecord())
	assert.ErrorIs(t, err, domain.ErrSyncSerialization)
}

func TestSubmit_InvalidPayloadNeverSent(t *testing.T) {
	var calls atomic.Int32
	s := newTestSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	})

	rec := testRecord()
	rec.Payload = []byte("{broken")
	_, err := s.Submit(context.Background(), rec)
	assert.ErrorIs(t, err, domain.ErrSyncSerialization)
	assert.Zero(t, calls.Load())
}

func TestSubmit_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	s, err := NewSubmitter(domain.RemoteSettings{BaseURL: url})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), testRecord())
	assert.ErrorIs(t, err, domain.ErrSyncNetwork)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 10*time.Second, parseRetryAfter("10", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
	assert.Equal(t, time.Minute, parseRetryAfter(now.Add(time.Minute).Format(http.TimeFormat), now))
}

func TestRateLimiter_Unlimited(t *testing.T) {
	l := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.True(t, l.PausedUntil().IsZero())
}

func TestRateLimiter_PauseKeepsLatest(t *testing.T) {
	l := NewRateLimiter(10, 1)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.RecordRateLimitError(time.Minute)
	l.RecordRateLimitError(time.Second)
	assert.Equal(t, now.Add(time.Minute), l.PausedUntil())

	l.RecordRateLimitError(0)
	assert.Equal(t, now.Add(time.Minute), l.PausedUntil())
}
