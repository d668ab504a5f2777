// Package server holds the shared state the MCP tool handlers operate
// on: the credential manager, the call governor, the Web API client,
// and the metrics recorder.
//
// It also runs the optional Prometheus metrics listener. Metrics live
// on a dedicated port because stdout belongs to the MCP protocol
// framing and must never carry anything else.
package server
