// Package logging provides structured logging helpers built on log/slog.
//
// The MCP stdio transport owns stdout, so all logging goes to stderr.
// The package defines canonical attribute keys so log entries stay
// consistent and greppable across the codebase.
package logging
