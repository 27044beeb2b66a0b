package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for herbtrace resources.
	uriScheme = "herbtrace://"
)

// recordInfo is the public view of a queued record. Payloads are omitted.
type recordInfo struct {
	ClientID      string `json:"client_id"`
	Kind          string `json:"kind"`
	State         string `json:"state"`
	Attempts      int    `json:"attempts"`
	LastError     string `json:"last_error,omitempty"`
	CreatedAt     string `json:"created_at"`
	NextAttemptAt string `json:"next_attempt_at,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the whole queue.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "queue",
		Name:        "queue",
		Description: "Records captured on this device and not yet acknowledged",
		MIMEType:    "application/json",
	}, s.handleQueueResource)

	// Template for one sync state.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "queue/{state}",
		Name:        "queue-by-state",
		Description: "Queued records in one sync state (pending, syncing, failed)",
		MIMEType:    "application/json",
	}, s.handleQueueStateResource)
}

// handleQueueResource returns every queued record.
func (s *Server) handleQueueResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Queue == nil {
		return jsonResult(req.Params.URI, "[]"), nil
	}
	return s.queueResult(ctx, req.Params.URI)
}

// handleQueueStateResource returns queued records in the state named by the URI.
func (s *Server) handleQueueStateResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Queue == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	state := extractState(req.Params.URI)
	if !state.IsValid() {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return s.queueResult(ctx, req.Params.URI, state)
}

func (s *Server) queueResult(ctx context.Context, uri string, states ...domain.SyncState) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.Queue.Records(ctx, states...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	infos := make([]recordInfo, len(records))
	for i := range records {
		r := &records[i]
		infos[i] = recordInfo{
			ClientID:  r.ClientID,
			Kind:      string(r.Kind),
			State:     string(r.SyncState),
			Attempts:  r.Attempts,
			LastError: r.LastError,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if !r.NextAttemptAt.IsZero() {
			infos[i].NextAttemptAt = r.NextAttemptAt.UTC().Format(time.RFC3339)
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling records: %w", err)
	}
	return jsonResult(uri, string(data)), nil
}

func jsonResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}
}

// extractState extracts the state from a URI like herbtrace://queue/{state}.
func extractState(uri string) domain.SyncState {
	const prefix = uriScheme + "queue/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return domain.SyncState(strings.TrimPrefix(uri, prefix))
}
