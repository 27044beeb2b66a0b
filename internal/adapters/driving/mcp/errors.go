// Package mcp provides an MCP (Model Context Protocol) server adapter for herbtrace.
// It lets assistants and scripted clients queue records and inspect sync state.
package mcp

import "errors"

var (
	// ErrMissingCaptureService is returned when the capture service is not provided.
	ErrMissingCaptureService = errors.New("mcp: capture service is required")

	// ErrMissingStatusService is returned when the status service is not provided.
	ErrMissingStatusService = errors.New("mcp: status service is required")

	// errUnavailable is returned by tools whose port was not wired.
	errUnavailable = errors.New("mcp: operation not available in this mode")
)
