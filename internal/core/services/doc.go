// Package services holds the record lifecycle: capture and drafts queue
// records, ConnectivityMonitor debounces the online signal, SyncCoordinator
// submits waves to the remote authority, and StatusPublisher summarises the
// queue for the CLI, TUI and MCP surfaces.
//
// Long-running services take a driven.Clock so debounce, backoff and
// watchdog timing can be driven deterministically in tests.
package services
