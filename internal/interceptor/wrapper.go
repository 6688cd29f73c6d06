package interceptor

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-gateway/internal/analytics"
)

// ToolHandlerFunc matches the shape of a single tool's callback.
type ToolHandlerFunc func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error)

// WrapHandler returns handler instrumented at the function level instead of
// the transport level: an alternative to Interceptor for callers that only
// have a tool callback to work with, not a shared transport to wrap.
//
// Events recorded this way never carry a session id; use the Interceptor
// when per-session sampling or attribution is required.
func WrapHandler(toolName string, sampleRate float64, tracer trace.Tracer, onEvent func(analytics.ToolCallEvent), handler ToolHandlerFunc) ToolHandlerFunc {
	samp := newSampler(PerCall, sampleRate)

	return func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
		if !samp.decide("") {
			return handler(ctx, args)
		}

		start := time.Now()
		var span trace.Span
		if tracer != nil {
			ctx, span = tracer.Start(ctx, "mcp.tools/call "+toolName)
		}

		result, err := handler(ctx, args)

		success := err == nil && (result == nil || !result.IsError)
		errMessage := ""
		if err != nil {
			errMessage = err.Error()
		} else if result != nil && result.IsError {
			errMessage = resultErrorText(result)
		}

		if span != nil {
			if !success {
				span.SetStatus(codes.Error, errMessage)
			}
			span.End()
		}

		if onEvent != nil {
			onEvent(analytics.ToolCallEvent{
				ToolName:     toolName,
				Timestamp:    start,
				DurationMs:   float64(time.Since(start).Microseconds()) / 1000.0,
				Success:      success,
				ErrorMessage: errMessage,
				InputSize:    EncodedSize(args),
				OutputSize:   resultSize(result),
			})
		}

		return result, err
	}
}

func resultErrorText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			return text.Text
		}
	}
	return "tool call failed"
}
