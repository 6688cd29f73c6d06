// Package listener exposes the aggregated gateway over /mcp (streamable
// HTTP, session-aware) and /health, bounding request bodies, tracking
// session lifecycle, and feeding tool calls to the analytics interceptor.
package listener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-gateway/internal/aggregator"
	"github.com/giantswarm/mcp-gateway/internal/interceptor"
	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

// DefaultMaxBodyBytes is the request body limit for POST /mcp (4 MiB).
const DefaultMaxBodyBytes = 4 * 1024 * 1024

// DefaultEndpointPath is where the streamable MCP transport is mounted.
const DefaultEndpointPath = "/mcp"

// Config configures a Listener.
type Config struct {
	Gateway      *aggregator.Gateway
	Interceptor  *interceptor.Interceptor // optional; Close()d on listener Shutdown
	Addr         string
	EndpointPath string // default DefaultEndpointPath
	MaxBodyBytes int64  // default DefaultMaxBodyBytes
}

// sessionRecord is the bookkeeping the listener keeps per live session,
// independent of whatever the streamable transport tracks internally.
type sessionRecord struct {
	registeredAt time.Time
}

// Listener is the session-aware HTTP front end of the gateway.
type Listener struct {
	gateway     *aggregator.Gateway
	interceptor *interceptor.Interceptor
	maxBody     int64

	sessionIDs *sessionIDManager

	mu       sync.Mutex
	sessions map[string]sessionRecord

	httpServer *http.Server
}

// New builds a Listener. It creates the shared MCP server from gateway's
// current tool index and wires session-lifecycle hooks for bookkeeping.
func New(cfg Config) (*Listener, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("listener: gateway is required")
	}

	endpointPath := cfg.EndpointPath
	if endpointPath == "" {
		endpointPath = DefaultEndpointPath
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	l := &Listener{
		gateway:     cfg.Gateway,
		interceptor: cfg.Interceptor,
		maxBody:     maxBody,
		sessions:    make(map[string]sessionRecord),
	}

	hooks := &server.Hooks{}
	hooks.AddOnRegisterSession(l.onRegisterSession)
	hooks.AddOnUnregisterSession(l.onUnregisterSession)
	hooks.AddOnError(l.onError)
	if l.interceptor != nil {
		hooks.AddBeforeCallTool(l.onBeforeCallTool)
		hooks.AddAfterCallTool(l.onAfterCallTool)
	}

	sessionIDs := newSessionIDManager()
	l.sessionIDs = sessionIDs

	mcpSrv := cfg.Gateway.CreateServer(hooks)
	streamable := server.NewStreamableHTTPServer(mcpSrv,
		server.WithEndpointPath(endpointPath),
		server.WithSessionIdManager(sessionIDs),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.Handle(endpointPath, recoverMiddleware(l.sessionGuardMiddleware(boundBodyMiddleware(streamable, maxBody))))

	l.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	return l, nil
}

func (l *Listener) onRegisterSession(_ context.Context, session server.ClientSession) {
	l.mu.Lock()
	l.sessions[session.SessionID()] = sessionRecord{registeredAt: time.Now()}
	l.mu.Unlock()
	logging.Audit(logging.AuditEvent{Action: "session_registered", Outcome: "success", SessionID: logging.TruncateSessionID(session.SessionID())})
}

func (l *Listener) onUnregisterSession(_ context.Context, session server.ClientSession) {
	l.mu.Lock()
	delete(l.sessions, session.SessionID())
	l.mu.Unlock()
	logging.Audit(logging.AuditEvent{Action: "session_unregistered", Outcome: "success", SessionID: logging.TruncateSessionID(session.SessionID())})
}

func (l *Listener) onError(_ context.Context, id any, method mcp.MCPMethod, _ any, err error) {
	if method == mcp.MethodToolsCall && l.interceptor != nil {
		l.interceptor.ObserveResponse(fmt.Sprintf("%v", id), false, err.Error(), mcp.INTERNAL_ERROR, 0)
	}
	logging.Error("Listener", err, "mcp method %s failed", method)
}

// onBeforeCallTool registers the call with the transport interceptor so the
// matching response (or error, or teardown) produces one analytics event.
func (l *Listener) onBeforeCallTool(ctx context.Context, id any, message *mcp.CallToolRequest) {
	sessionID := ""
	if session := server.ClientSessionFromContext(ctx); session != nil {
		sessionID = session.SessionID()
	}
	l.interceptor.ObserveRequest(ctx, fmt.Sprintf("%v", id), sessionID, message.Params.Name,
		interceptor.EncodedSize(message.Params.Arguments))
}

func (l *Listener) onAfterCallTool(_ context.Context, id any, message *mcp.CallToolRequest, result any) {
	callResult, _ := result.(*mcp.CallToolResult)
	success := callResult == nil || !callResult.IsError
	errMessage := ""
	if !success {
		errMessage = resultErrorText(callResult)
	}
	l.interceptor.ObserveResponse(fmt.Sprintf("%v", id), success, errMessage, 0, interceptor.EncodedSize(callResult))
}

func resultErrorText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			return text.Text
		}
	}
	return "tool call failed"
}

// ActiveSessions reports the number of currently registered sessions.
func (l *Listener) ActiveSessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// ListenAndServe starts the HTTP server; it blocks until Shutdown is called
// or a fatal error occurs.
func (l *Listener) ListenAndServe() error {
	logging.Info("Listener", "listening on %s", l.httpServer.Addr)
	err := l.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting new connections, waits for in-flight requests,
// closes the underlying gateway backends, and drains any pending interceptor
// calls as teardown failures.
func (l *Listener) Shutdown(ctx context.Context) error {
	err := l.httpServer.Shutdown(ctx)

	if l.interceptor != nil {
		l.interceptor.Close()
	}
	if closeErr := l.gateway.Close(); closeErr != nil {
		logging.Warn("Listener", "error closing gateway backends: %v", closeErr)
	}

	l.mu.Lock()
	l.sessions = make(map[string]sessionRecord)
	l.mu.Unlock()

	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionGuardMiddleware rejects GET and DELETE requests that do not name a
// live session, before the streamable transport sees them. POST passes
// through: a POST without a session id is how a session is created.
func (l *Listener) sessionGuardMiddleware(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodDelete {
			id := r.Header.Get("Mcp-Session-Id")
			if terminated, err := l.sessionIDs.Validate(id); id == "" || terminated || err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No session found"})
				return
			}
		}
		inner.ServeHTTP(w, r)
	})
}

// boundBodyMiddleware enforces MaxBodyBytes on POST bodies and validates
// that the body is well-formed JSON before handing off to inner, matching
// the listener's documented 413/400 behavior rather than whatever error
// shape the wrapped transport would otherwise produce.
func boundBodyMiddleware(inner http.Handler, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			inner.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}
		if int64(len(body)) > maxBody {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Request body too large"})
			return
		}
		if !json.Valid(body) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		inner.ServeHTTP(w, r)
	})
}

// recoverMiddleware turns a panic in inner into a 500 response instead of
// taking down the listener.
func recoverMiddleware(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.Error("Listener", fmt.Errorf("panic: %v", rec), "unhandled panic in mcp handler")
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			}
		}()
		inner.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
