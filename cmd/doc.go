// Package cmd implements the command-line interface for spotify-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing Spotify tools over stdio
//   - auth: Run the interactive Spotify authorization flow ahead of time
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
