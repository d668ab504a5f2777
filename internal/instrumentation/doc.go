// Package instrumentation provides OpenTelemetry metrics for the MCP
// server.
//
// Metrics are exported via the Prometheus reader and served on a side
// HTTP port; the stdio transport that carries the MCP protocol stays
// untouched. Tracing is deliberately absent: a single-operator stdio
// process has no collector to ship spans to.
//
// All recorders are nil-safe. When instrumentation is disabled the
// Provider hands out a zero-value Metrics whose methods are no-ops, so
// call sites never branch on whether metrics are on.
package instrumentation
