package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome describes how a tool call or a streaming command ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeError   Outcome = "error"
)

// CustomMetrics records the application-level metrics of mcpagent.
type CustomMetrics interface {
	// RecordToolCall records a single tool invocation and how long it took.
	RecordToolCall(ctx context.Context, tool string, outcome Outcome, duration time.Duration)
	// RecordStreamCommand records a streaming command once it has ended.
	RecordStreamCommand(ctx context.Context, outcome Outcome, exitCode int, duration time.Duration)
	// StreamSessionOpened and StreamSessionClosed track live streaming connections.
	StreamSessionOpened(ctx context.Context)
	StreamSessionClosed(ctx context.Context)
}

type noopCustomMetrics struct{}

// NewNoopCustomMetrics returns a CustomMetrics that records nothing.
func NewNoopCustomMetrics() CustomMetrics {
	return noopCustomMetrics{}
}

func (noopCustomMetrics) RecordToolCall(context.Context, string, Outcome, time.Duration)   {}
func (noopCustomMetrics) RecordStreamCommand(context.Context, Outcome, int, time.Duration) {}
func (noopCustomMetrics) StreamSessionOpened(context.Context)                              {}
func (noopCustomMetrics) StreamSessionClosed(context.Context)                              {}

type otelCustomMetrics struct {
	toolCalls       metric.Int64Counter
	toolCallLatency metric.Float64Histogram

	streamCommands       metric.Int64Counter
	streamCommandLatency metric.Float64Histogram
	streamSessions       metric.Int64UpDownCounter
}

// NewOtelCustomMetrics creates the instruments on the given meter.
func NewOtelCustomMetrics(meter metric.Meter) (CustomMetrics, error) {
	m := &otelCustomMetrics{}
	var err error

	m.toolCalls, err = meter.Int64Counter(
		"mcpagent_tool_calls_total",
		metric.WithDescription("Number of tool calls handled by the dispatcher"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	m.toolCallLatency, err = meter.Float64Histogram(
		"mcpagent_tool_call_duration_seconds",
		metric.WithDescription("Duration of tool calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool call duration histogram: %w", err)
	}

	m.streamCommands, err = meter.Int64Counter(
		"mcpagent_stream_commands_total",
		metric.WithDescription("Number of streaming commands that have ended"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream commands counter: %w", err)
	}

	m.streamCommandLatency, err = meter.Float64Histogram(
		"mcpagent_stream_command_duration_seconds",
		metric.WithDescription("Duration of streaming commands"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream command duration histogram: %w", err)
	}

	m.streamSessions, err = meter.Int64UpDownCounter(
		"mcpagent_stream_sessions",
		metric.WithDescription("Number of live streaming connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream sessions gauge: %w", err)
	}

	return m, nil
}

func (m *otelCustomMetrics) RecordToolCall(ctx context.Context, tool string, outcome Outcome, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", string(outcome)),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolCallLatency.Record(ctx, duration.Seconds(), attrs)
}

func (m *otelCustomMetrics) RecordStreamCommand(ctx context.Context, outcome Outcome, exitCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
		attribute.Int("exit_code", exitCode),
	)
	m.streamCommands.Add(ctx, 1, attrs)
	m.streamCommandLatency.Record(ctx, duration.Seconds(), attrs)
}

func (m *otelCustomMetrics) StreamSessionOpened(ctx context.Context) {
	m.streamSessions.Add(ctx, 1)
}

func (m *otelCustomMetrics) StreamSessionClosed(ctx context.Context) {
	m.streamSessions.Add(ctx, -1)
}
