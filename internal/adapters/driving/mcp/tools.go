package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// SubmitRecordInput is the input schema for the submit_record tool.
type SubmitRecordInput struct {
	Kind    string         `json:"kind" jsonschema:"record kind: herb-collection or farmer-registration"`
	Payload map[string]any `json:"payload" jsonschema:"the record body as a JSON object"`
}

// SubmitRecordOutput is the output schema for the submit_record tool.
type SubmitRecordOutput struct {
	ClientID string `json:"client_id"`
}

// EmptyInput is the input schema for tools without arguments.
type EmptyInput struct{}

// StatusOutput is the output schema for the get_status tool.
type StatusOutput struct {
	Connectivity   string `json:"connectivity"`
	PendingCount   int    `json:"pending_count"`
	FailedCount    int    `json:"failed_count"`
	ExhaustedCount int    `json:"exhausted_count"`
	Syncing        bool   `json:"syncing"`
	LastSyncAt     string `json:"last_sync_at,omitempty"`
	Summary        string `json:"summary"`
}

// SyncOutput is the output schema for the trigger_sync tool.
type SyncOutput struct {
	Waves     int `json:"waves"`
	Submitted int `json:"submitted"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
}

// RetryOutput is the output schema for the retry_failed tool.
type RetryOutput struct {
	Reset int `json:"reset"`
}

// LocationInput is the input schema for the acquire_location tool.
type LocationInput struct {
	TimeoutSeconds int `json:"timeout_seconds,omitempty" jsonschema:"platform timeout in seconds (default from settings)"`
}

// LocationOutput is the output schema for the acquire_location tool.
type LocationOutput struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Accuracy   float64 `json:"accuracy"`
	Source     string  `json:"source"`
	CapturedAt string  `json:"captured_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "submit_record",
		Description: "Queue a captured record for synchronisation with the remote authority",
	}, s.handleSubmitRecord)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_status",
		Description: "Report connectivity and the number of records awaiting sync",
	}, s.handleGetStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "trigger_sync",
		Description: "Run a sync cycle now, or join the one already running",
	}, s.handleTriggerSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retry_failed",
		Description: "Reset records that exhausted their attempts so they are retried",
	}, s.handleRetryFailed)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "acquire_location",
		Description: "Acquire the current device location",
	}, s.handleAcquireLocation)
}

// handleSubmitRecord handles the submit_record tool invocation.
func (s *Server) handleSubmitRecord(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SubmitRecordInput,
) (*mcp.CallToolResult, SubmitRecordOutput, error) {
	if input.Payload == nil {
		return nil, SubmitRecordOutput{}, fmt.Errorf("%w: payload is required", domain.ErrInvalidInput)
	}
	payload, err := json.Marshal(input.Payload)
	if err != nil {
		return nil, SubmitRecordOutput{}, fmt.Errorf("encoding payload: %w", err)
	}

	id, err := s.ports.Capture.SubmitRecord(ctx, domain.RecordKind(input.Kind), payload)
	if err != nil {
		return nil, SubmitRecordOutput{}, err
	}
	return nil, SubmitRecordOutput{ClientID: id}, nil
}

// handleGetStatus handles the get_status tool invocation.
func (s *Server) handleGetStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	snap, err := s.ports.Status.GetSnapshot(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	out := StatusOutput{
		Connectivity:   string(snap.Connectivity),
		PendingCount:   snap.PendingCount,
		FailedCount:    snap.FailedCount,
		ExhaustedCount: snap.ExhaustedCount,
		Syncing:        snap.ActiveSyncInProgress,
		Summary:        snap.Summary(),
	}
	if !snap.LastSyncAt.IsZero() {
		out.LastSyncAt = snap.LastSyncAt.UTC().Format(time.RFC3339)
	}
	return nil, out, nil
}

// handleTriggerSync handles the trigger_sync tool invocation.
func (s *Server) handleTriggerSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	if s.ports.Sync == nil {
		return nil, SyncOutput{}, errUnavailable
	}
	if err := s.ports.Sync.TriggerSync(ctx); err != nil {
		return nil, SyncOutput{}, err
	}

	last := s.ports.Sync.Status().LastCycle
	return nil, SyncOutput{
		Waves:     last.Waves,
		Submitted: last.Submitted,
		Synced:    last.Synced,
		Failed:    last.Failed,
	}, nil
}

// handleRetryFailed handles the retry_failed tool invocation.
func (s *Server) handleRetryFailed(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, RetryOutput, error) {
	if s.ports.Sync == nil {
		return nil, RetryOutput{}, errUnavailable
	}
	n, err := s.ports.Sync.RetryFailed(ctx)
	if err != nil {
		return nil, RetryOutput{}, err
	}
	return nil, RetryOutput{Reset: n}, nil
}

// handleAcquireLocation handles the acquire_location tool invocation.
func (s *Server) handleAcquireLocation(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LocationInput,
) (*mcp.CallToolResult, LocationOutput, error) {
	if s.ports.Location == nil {
		return nil, LocationOutput{}, errUnavailable
	}

	opts := domain.GeoOptions{HighAccuracy: true}
	if input.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}

	fix, err := s.ports.Location.Acquire(ctx, opts)
	if err != nil {
		return nil, LocationOutput{}, err
	}
	return nil, LocationOutput{
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		Accuracy:   fix.Accuracy,
		Source:     string(fix.Source),
		CapturedAt: fix.CapturedAt.UTC().Format(time.RFC3339),
	}, nil
}
