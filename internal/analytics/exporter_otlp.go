package analytics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTLPExporter records each batch against an injected metric.Meter instead
// of speaking the OTLP wire protocol directly: actual export to a collector
// endpoint is the externally-configured MeterProvider's job.
type OTLPExporter struct {
	calls    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewOTLPExporter builds an OTLPExporter against meter, registering the
// counters and histogram it needs. An error here means the MeterProvider
// rejected instrument creation (e.g. a duplicate name); callers typically
// treat that as a construction-time fatal error.
func NewOTLPExporter(meter metric.Meter) (*OTLPExporter, error) {
	calls, err := meter.Int64Counter("mcp_gateway.tool_calls",
		metric.WithDescription("Total MCP tool calls observed by the gateway"))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: calls counter: %w", err)
	}
	errs, err := meter.Int64Counter("mcp_gateway.tool_call_errors",
		metric.WithDescription("Total failed MCP tool calls observed by the gateway"))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: errors counter: %w", err)
	}
	duration, err := meter.Float64Histogram("mcp_gateway.tool_call_duration_ms",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: duration histogram: %w", err)
	}

	return &OTLPExporter{calls: calls, errors: errs, duration: duration}, nil
}

// Export implements Exporter.
func (o *OTLPExporter) Export(ctx context.Context, batch []ToolCallEvent) error {
	for _, e := range batch {
		attrs := metric.WithAttributes(attribute.String("tool", e.ToolName))
		o.calls.Add(ctx, 1, attrs)
		if !e.Success {
			o.errors.Add(ctx, 1, attrs)
		}
		o.duration.Record(ctx, e.DurationMs, attrs)
	}
	return nil
}
