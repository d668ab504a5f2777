package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrTool          = "tool"
	attrStatus        = "status"
	attrOperation     = "operation"
	attrEndpointClass = "endpoint_class"
	attrResult        = "result"
)

// Metrics provides methods for recording observability metrics. The
// zero value is a valid no-op recorder.
type Metrics struct {
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	remoteOperationsTotal   metric.Int64Counter
	remoteOperationDuration metric.Float64Histogram
	rateLimitHitsTotal      metric.Int64Counter

	tokenRefreshTotal metric.Int64Counter
	grantTotal        metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments registered
// on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	m.remoteOperationsTotal, err = meter.Int64Counter(
		"spotify_api_operations_total",
		metric.WithDescription("Total number of Spotify Web API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify_api_operations_total counter: %w", err)
	}

	m.remoteOperationDuration, err = meter.Float64Histogram(
		"spotify_api_operation_duration_seconds",
		metric.WithDescription("Spotify Web API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify_api_operation_duration_seconds histogram: %w", err)
	}

	m.rateLimitHitsTotal, err = meter.Int64Counter(
		"spotify_rate_limit_hits_total",
		metric.WithDescription("Total number of throttling rejections from the Spotify Web API"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify_rate_limit_hits_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.grantTotal, err = meter.Int64Counter(
		"oauth_grant_total",
		metric.WithDescription("Total number of interactive authorization grants"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_grant_total counter: %w", err)
	}

	return m, nil
}

// RecordToolInvocation records an MCP tool invocation with tool name,
// status ("success" or "error"), and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRemoteOperation records a Web API operation with its endpoint
// class, status, and duration.
func (m *Metrics) RecordRemoteOperation(ctx context.Context, operation, class, status string, duration time.Duration) {
	if m.remoteOperationsTotal == nil || m.remoteOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrEndpointClass, class),
		attribute.String(attrStatus, status),
	}
	m.remoteOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.remoteOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRateLimitHit records a throttling rejection in an endpoint class.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, class string) {
	if m.rateLimitHitsTotal == nil {
		return
	}
	m.rateLimitHitsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrEndpointClass, class),
	))
}

// RecordTokenRefresh records a refresh attempt. Result should be one
// of: "success", "rejected", "error".
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordGrant records an interactive grant attempt. Result should be
// one of: "success", "failure".
func (m *Metrics) RecordGrant(ctx context.Context, result string) {
	if m.grantTotal == nil {
		return
	}
	m.grantTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}
