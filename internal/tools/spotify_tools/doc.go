// Package spotify_tools registers the Spotify tools with the MCP server.
//
// Every tool follows the same shape: validate arguments, obtain a valid
// credential, run the remote operation through the call governor under
// the tool's endpoint class, and project the raw API response into the
// tool's declared output. Failures of any kind are rendered as the
// uniform JSON error envelope; raw HTTP semantics never reach the
// client.
package spotify_tools
