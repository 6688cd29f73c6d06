package analytics

import (
	"context"

	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

// Exporter is the batch delivery contract: given a batch of events, it
// returns once delivery completes or fails. Exporters may return an error;
// the collector treats that as a transient failure and re-queues the batch
// (see Collector.Flush).
type Exporter interface {
	Export(ctx context.Context, batch []ToolCallEvent) error
}

// ExporterFunc adapts a plain function to the Exporter interface.
type ExporterFunc func(ctx context.Context, batch []ToolCallEvent) error

// Export implements Exporter.
func (f ExporterFunc) Export(ctx context.Context, batch []ToolCallEvent) error {
	return f(ctx, batch)
}

// FuncExporter wraps a user-supplied function exporter (the "function"
// variant of the exporter config surface) and swallows any error it
// returns, logging it instead of propagating. This is the custom-exporter
// safety net: user bugs in a hand-rolled exporter must never stall the
// pipeline by repeatedly re-queueing a poison batch.
type FuncExporter struct {
	Fn ExporterFunc
}

// NewFuncExporter builds a FuncExporter from fn.
func NewFuncExporter(fn func(ctx context.Context, batch []ToolCallEvent) error) *FuncExporter {
	return &FuncExporter{Fn: fn}
}

// Export implements Exporter; it never returns a non-nil error.
func (e *FuncExporter) Export(ctx context.Context, batch []ToolCallEvent) error {
	if err := e.Fn(ctx, batch); err != nil {
		logging.Error("Analytics", err, "custom exporter failed, dropping batch of %d events", len(batch))
	}
	return nil
}
