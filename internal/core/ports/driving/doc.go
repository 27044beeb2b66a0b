// Package driving holds the interfaces the CLI, TUI, MCP server and inbox
// call into. internal/core/services implements every one of them.
package driving
