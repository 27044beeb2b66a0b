package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

func TestExtractState(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected domain.SyncState
	}{
		{
			name:     "valid state URI",
			uri:      "herbtrace://queue/failed",
			expected: domain.SyncStateFailed,
		},
		{
			name:     "invalid prefix",
			uri:      "file://queue/failed",
			expected: "",
		},
		{
			name:     "queue without state",
			uri:      "herbtrace://queue",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractState(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleQueueResource(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 6, 2, 8, 15, 0, 0, time.UTC)

	t.Run("nil queue returns empty list", func(t *testing.T) {
		server, err := NewServer(requiredPorts())
		require.NoError(t, err)

		result, err := server.handleQueueResource(ctx, makeReadResourceRequest("herbtrace://queue"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("lists records without payloads", func(t *testing.T) {
		ports := requiredPorts()
		ports.Queue = &mockRecordQueue{records: []domain.PendingRecord{{
			ClientID:  "01J1",
			Kind:      domain.KindFarmerRegistration,
			Payload:   []byte(`{"aadhaar":"secret"}`),
			CreatedAt: created,
			SyncState: domain.SyncStateFailed,
			Attempts:  2,
			LastError: "sync network: timeout",
		}}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleQueueResource(ctx, makeReadResourceRequest("herbtrace://queue"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		text := result.Contents[0].Text
		assert.Contains(t, text, `"client_id": "01J1"`)
		assert.Contains(t, text, `"state": "failed"`)
		assert.Contains(t, text, `"created_at": "2026-06-02T08:15:00Z"`)
		assert.NotContains(t, text, "secret")
		assert.NotContains(t, text, "next_attempt_at")
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		ports := requiredPorts()
		ports.Queue = &mockRecordQueue{err: errors.New("database locked")}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handleQueueResource(ctx, makeReadResourceRequest("herbtrace://queue"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing records")
	})
}

func TestServer_handleQueueStateResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil queue returns not found", func(t *testing.T) {
		server, err := NewServer(requiredPorts())
		require.NoError(t, err)

		_, err = server.handleQueueStateResource(ctx, makeReadResourceRequest("herbtrace://queue/pending"))
		require.Error(t, err)
	})

	t.Run("unknown state returns not found", func(t *testing.T) {
		ports := requiredPorts()
		ports.Queue = &mockRecordQueue{}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handleQueueStateResource(ctx, makeReadResourceRequest("herbtrace://queue/lost"))
		require.Error(t, err)
	})

	t.Run("filters by state", func(t *testing.T) {
		queue := &mockRecordQueue{}
		ports := requiredPorts()
		ports.Queue = queue
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleQueueStateResource(ctx, makeReadResourceRequest("herbtrace://queue/pending"))
		require.NoError(t, err)
		assert.Equal(t, []domain.SyncState{domain.SyncStatePending}, queue.states)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})
}
