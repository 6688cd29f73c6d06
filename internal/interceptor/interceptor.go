package interceptor

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-gateway/internal/analytics"
)

// teardownReason is recorded on every pending call drained by Close.
const teardownReason = "Transport closed before tool response"

// Config configures an Interceptor.
type Config struct {
	SampleRate float64
	Strategy   SampleStrategy
	Tracer     trace.Tracer // nil disables span lifecycle
	OnEvent    func(analytics.ToolCallEvent)
}

// pendingCall is the interceptor's bookkeeping for one in-flight tools/call
// request, keyed by its JSON-RPC id.
type pendingCall struct {
	toolName  string
	sessionID string
	startTime time.Time
	inputSize int
	sampled   bool
	span      trace.Span
}

// Interceptor turns every observed tools/call request/response pair into an
// analytics.ToolCallEvent. It does not wrap or move bytes on a transport:
// callers feed it request/response observations from whatever transport
// boundary they own (HTTP handler, stdio loop, ...).
type Interceptor struct {
	sampler *sampler
	tracer  trace.Tracer
	onEvent func(analytics.ToolCallEvent)

	mu      sync.Mutex
	pending map[string]*pendingCall
}

// New builds an Interceptor from cfg.
func New(cfg Config) *Interceptor {
	return &Interceptor{
		sampler: newSampler(cfg.Strategy, cfg.SampleRate),
		tracer:  cfg.Tracer,
		onEvent: cfg.OnEvent,
		pending: make(map[string]*pendingCall),
	}
}

// ObserveRequest registers a tools/call request under id. sessionID may be
// empty (treated as the "unknown" sampling bucket). It returns the context
// to use for the downstream call: if a span was started, the context carries
// it so nested calls become children.
func (i *Interceptor) ObserveRequest(ctx context.Context, id, sessionID, toolName string, inputSize int) context.Context {
	sampled := i.sampler.decide(sessionID)

	call := &pendingCall{
		toolName:  toolName,
		sessionID: sessionID,
		startTime: time.Now(),
		inputSize: inputSize,
		sampled:   sampled,
	}

	if sampled && i.tracer != nil {
		var span trace.Span
		ctx, span = i.tracer.Start(ctx, "mcp.tools/call "+toolName)
		call.span = span
	}

	i.mu.Lock()
	i.pending[id] = call
	i.mu.Unlock()

	return ctx
}

// ObserveResponse matches id against a pending request, emits the resulting
// ToolCallEvent (if the call was sampled), and closes its span. A response
// for an id never registered by ObserveRequest is ignored.
func (i *Interceptor) ObserveResponse(id string, success bool, errMessage string, errCode int, outputSize int) {
	i.mu.Lock()
	call, ok := i.pending[id]
	if ok {
		delete(i.pending, id)
	}
	i.mu.Unlock()
	if !ok {
		return
	}

	i.finish(call, success, errMessage, errCode, outputSize)
}

func (i *Interceptor) finish(call *pendingCall, success bool, errMessage string, errCode int, outputSize int) {
	if call.span != nil {
		if !success {
			call.span.SetStatus(codes.Error, errMessage)
		}
		call.span.End()
	}

	if !call.sampled || i.onEvent == nil {
		return
	}

	i.onEvent(analytics.ToolCallEvent{
		ToolName:     call.toolName,
		SessionID:    call.sessionID,
		Timestamp:    call.startTime,
		DurationMs:   float64(time.Since(call.startTime).Microseconds()) / 1000.0,
		Success:      success,
		ErrorMessage: errMessage,
		ErrorCode:    errCode,
		InputSize:    call.inputSize,
		OutputSize:   outputSize,
	})
}

// Close drains every pending call as a teardown failure, closes their spans,
// and clears the per-session sampling cache. Call this when the owning
// transport closes (explicit close or onclose).
func (i *Interceptor) Close() {
	i.mu.Lock()
	pending := i.pending
	i.pending = make(map[string]*pendingCall)
	i.mu.Unlock()

	for _, call := range pending {
		i.finish(call, false, teardownReason, 0, 0)
	}

	i.sampler.reset()
}

// Pending reports how many calls are currently awaiting a response; exposed
// for tests and diagnostics.
func (i *Interceptor) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.pending)
}
