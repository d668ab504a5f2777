// Package common holds the pieces shared by every tool handler: the
// uniform error envelope returned to MCP clients and the instrumented
// handler wrapper that records metrics and structured logs per
// invocation.
package common
