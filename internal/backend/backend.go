// Package backend defines the upstream MCP backend contract: connect,
// list tools, call a tool, close, with a cached tool list until explicitly
// invalidated. Two concrete transports are provided, HTTP and stdio; both
// share the same post-connect logic through baseClient.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

// ErrNotConnected is returned by any operation attempted before Connect
// succeeds.
var ErrNotConnected = errors.New("not connected")

// Kind discriminates the tagged BackendConfig variant.
type Kind int

const (
	// KindHTTP dials a streamable-HTTP MCP endpoint.
	KindHTTP Kind = iota
	// KindStdio spawns a child process and speaks MCP over its stdio.
	KindStdio
)

// Config is the immutable, tagged-union backend configuration. Exactly one
// of the HTTP or stdio fields is meaningful, selected by Kind.
type Config struct {
	Kind Kind

	// HTTP fields.
	URL     string
	Headers map[string]string

	// Stdio fields.
	Command string
	Args    []string
	Env     map[string]string
}

// ToolInfo is an aggregator-facing tool description annotated with the
// backend that serves it.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema mcp.ToolInputSchema
	Backend     string
}

// Client is the contract every backend transport satisfies. ListTools is
// memoized until InvalidateToolCache is called.
type Client interface {
	Connect(ctx context.Context) error
	ListTools(ctx context.Context) ([]ToolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
	Close() error
	Connected() bool
	InvalidateToolCache()
	Config() Config
}

// New builds the concrete Client for cfg: HTTPClient for KindHTTP, StdioClient
// for KindStdio.
func New(name string, cfg Config) (Client, error) {
	switch cfg.Kind {
	case KindHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("backend %s: url is required for http backend", name)
		}
		return newHTTPClient(name, cfg), nil
	case KindStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("backend %s: command is required for stdio backend", name)
		}
		return newStdioClient(name, cfg), nil
	default:
		return nil, fmt.Errorf("backend %s: unknown backend kind %d", name, cfg.Kind)
	}
}

// baseClient holds the state and logic shared by every transport once an
// underlying client.MCPClient is dialed: tool-list memoization, the
// connected flag, and the common ListTools/CallTool/Close bodies.
type baseClient struct {
	name string
	cfg  Config

	mu        sync.RWMutex
	inner     client.MCPClient
	connected bool

	toolsMu    sync.Mutex
	toolsValid bool
	tools      []ToolInfo
}

func (b *baseClient) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *baseClient) Config() Config {
	return b.cfg
}

func (b *baseClient) InvalidateToolCache() {
	b.toolsMu.Lock()
	defer b.toolsMu.Unlock()
	b.toolsValid = false
	b.tools = nil
}

func (b *baseClient) setConnected(inner client.MCPClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inner = inner
	b.connected = true
}

func (b *baseClient) ListTools(ctx context.Context) ([]ToolInfo, error) {
	b.toolsMu.Lock()
	defer b.toolsMu.Unlock()

	if b.toolsValid {
		return b.tools, nil
	}

	b.mu.RLock()
	inner, connected := b.inner, b.connected
	b.mu.RUnlock()
	if !connected {
		return nil, fmt.Errorf("backend %s: %w", b.name, ErrNotConnected)
	}

	result, err := inner.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("backend %s: list tools: %w", b.name, err)
	}

	tools := make([]ToolInfo, len(result.Tools))
	for i, t := range result.Tools {
		tools[i] = ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
			Backend:     b.name,
		}
	}
	b.tools = tools
	b.toolsValid = true
	return tools, nil
}

func (b *baseClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	b.mu.RLock()
	inner, connected := b.inner, b.connected
	b.mu.RUnlock()
	if !connected {
		return nil, fmt.Errorf("backend %s: %w", b.name, ErrNotConnected)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := inner.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("backend %s: call tool %s: %w", b.name, name, err)
	}
	return result, nil
}

func (b *baseClient) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected || b.inner == nil {
		return nil
	}
	err := b.inner.Close()
	b.connected = false
	b.inner = nil
	logging.Debug("Backend", "closed backend %s", b.name)
	return err
}
