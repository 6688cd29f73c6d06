package aggregator

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	backendpkg "github.com/giantswarm/mcp-gateway/internal/backend"
	"github.com/giantswarm/mcp-gateway/internal/middleware"
	"github.com/giantswarm/mcp-gateway/internal/router"
	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

// BackendSnapshot is the read-only view of one backend's status returned by
// Gateway.GetBackends.
type BackendSnapshot struct {
	Name      string
	Config    backendpkg.Config
	ToolCount int
	Connected bool
}

// Config is the gateway's construction-time configuration: unique backend
// names, ordered routing rules, and an ordered middleware chain.
type Config struct {
	Name        string
	Version     string
	Servers     map[string]backendpkg.Config
	ServerOrder []string // declared order; determines aggregator tie-breaking
	Routing     []router.Rule
	Middleware  []middleware.Middleware
}

// Gateway is the aggregating gateway core. It is safe for concurrent use: the tool
// index is replaced atomically on refresh, the router and middleware chain
// are swapped under routeMu by ReplaceRouting/ReplaceMiddleware, and the
// backend map is immutable after construction.
type Gateway struct {
	name    string
	version string

	routeMu    sync.RWMutex
	router     *router.Router
	middleware []middleware.Middleware

	backends    map[string]backendpkg.Client
	backendName []string // declared order, for deterministic aggregation

	indexMu sync.RWMutex
	index   map[string]backendpkg.ToolInfo
}

// New builds a Gateway from cfg. Backend clients are constructed (but not
// connected) eagerly so construction-time errors (bad config) surface
// immediately rather than at Connect.
func New(cfg Config) (*Gateway, error) {
	backends := make(map[string]backendpkg.Client, len(cfg.Servers))
	for name, bcfg := range cfg.Servers {
		client, err := backendpkg.New(name, bcfg)
		if err != nil {
			return nil, fmt.Errorf("gateway: %w", err)
		}
		backends[name] = client
	}

	order := cfg.ServerOrder
	if len(order) == 0 {
		for name := range cfg.Servers {
			order = append(order, name)
		}
	}

	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = "mcp-proxy"
	}
	if version == "" {
		version = "1.0.0"
	}

	return &Gateway{
		name:        name,
		version:     version,
		router:      router.New(cfg.Routing),
		middleware:  cfg.Middleware,
		backends:    backends,
		backendName: order,
		index:       make(map[string]backendpkg.ToolInfo),
	}, nil
}

// Connect fans out Connect across every backend and awaits all of them,
// failing the whole call if any backend fails; it then refreshes the tool
// index.
func (g *Gateway) Connect(ctx context.Context) error {
	grp, ctx := errgroup.WithContext(ctx)
	for name, client := range g.backends {
		name, client := name, client
		grp.Go(func() error {
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("backend %s: %w", name, err)
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}
	return g.RefreshToolIndex(ctx)
}

// RefreshToolIndex fans out ListTools across every backend, aggregates the
// results, and atomically replaces the tool index.
func (g *Gateway) RefreshToolIndex(ctx context.Context) error {
	perBackend := make(map[string][]backendpkg.ToolInfo, len(g.backends))
	var mu sync.Mutex

	grp, ctx := errgroup.WithContext(ctx)
	for name, client := range g.backends {
		name, client := name, client
		grp.Go(func() error {
			tools, err := client.ListTools(ctx)
			if err != nil {
				return fmt.Errorf("backend %s: %w", name, err)
			}
			mu.Lock()
			perBackend[name] = tools
			mu.Unlock()
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	merged := AggregateTools(g.backendName, perBackend)
	index := make(map[string]backendpkg.ToolInfo, len(merged))
	for _, t := range merged {
		index[t.Name] = t
	}

	g.indexMu.Lock()
	g.index = index
	g.indexMu.Unlock()
	return nil
}

// CallTool routes name through the router, resolves the target backend,
// runs the middleware chain, and never lets a raw error escape to the
// caller: every failure becomes an MCP result with IsError=true.
func (g *Gateway) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	g.routeMu.RLock()
	rt, chain := g.router, g.middleware
	g.routeMu.RUnlock()

	serverName, ok := rt.Resolve(name)
	if !ok {
		logging.Audit(logging.AuditEvent{Action: "route_not_found", Outcome: "failure", Target: name})
		return middleware.ErrorResult("No routing rule matches"), nil
	}

	client, ok := g.backends[serverName]
	if !ok {
		logging.Audit(logging.AuditEvent{Action: "backend_not_found", Outcome: "failure", Target: serverName})
		return middleware.ErrorResult("Backend not found"), nil
	}

	mwctx := &middleware.Context{ToolName: name, Arguments: args, Server: serverName}

	final := func(ctx context.Context, mwctx *middleware.Context) (*mcp.CallToolResult, error) {
		result, err := client.CallTool(ctx, mwctx.ToolName, mwctx.Arguments)
		if err != nil {
			logging.Audit(logging.AuditEvent{Action: "backend_call_failed", Outcome: "failure", Target: mwctx.ToolName, Error: err.Error()})
			return middleware.ErrorResult(fmt.Sprintf("Backend error: %s", err.Error())), nil
		}
		return result, nil
	}

	return middleware.Execute(ctx, chain, mwctx, final)
}

// CreateServer builds an MCP server instance that re-exports every tool in
// the current index under the same name, with a deliberately permissive
// input schema: the backend, not the gateway, is authoritative on argument
// validation.
func (g *Gateway) CreateServer(hooks *server.Hooks) *server.MCPServer {
	g.indexMu.RLock()
	tools := make([]backendpkg.ToolInfo, 0, len(g.index))
	for _, t := range g.index {
		tools = append(tools, t)
	}
	g.indexMu.RUnlock()

	var mcpSrv *server.MCPServer
	if hooks != nil {
		mcpSrv = server.NewMCPServer(g.name, g.version, server.WithToolCapabilities(true), server.WithHooks(hooks))
	} else {
		mcpSrv = server.NewMCPServer(g.name, g.version, server.WithToolCapabilities(true))
	}

	serverTools := make([]server.ServerTool, 0, len(tools))
	for _, t := range tools {
		t := t
		serverTools = append(serverTools, server.ServerTool{
			Tool: mcp.Tool{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: permissiveSchema(t.InputSchema),
			},
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				args := map[string]interface{}{}
				if m, ok := req.Params.Arguments.(map[string]interface{}); ok {
					args = m
				}
				return g.CallTool(ctx, t.Name, args)
			},
		})
	}
	mcpSrv.AddTools(serverTools...)
	return mcpSrv
}

// permissiveSchema strips the backend's schema down to its declared shape
// for advertising purposes but keeps it permissive: unknown keys are simply
// not constrained, and any typed value is accepted. Backend-side validation
// is authoritative per the gateway's error taxonomy.
func permissiveSchema(schema mcp.ToolInputSchema) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: schema.Properties,
	}
}

// GetBackends returns a snapshot of every configured backend: its config,
// its current share of the aggregated tool index, and connection status.
func (g *Gateway) GetBackends() []BackendSnapshot {
	g.indexMu.RLock()
	counts := make(map[string]int, len(g.backends))
	for _, t := range g.index {
		counts[t.Backend]++
	}
	g.indexMu.RUnlock()

	out := make([]BackendSnapshot, 0, len(g.backends))
	for _, name := range g.backendName {
		client, ok := g.backends[name]
		if !ok {
			continue
		}
		out = append(out, BackendSnapshot{
			Name:      name,
			Config:    client.Config(),
			ToolCount: counts[name],
			Connected: client.Connected(),
		})
	}
	return out
}

// Router exposes the compiled router for introspection (CLI status).
func (g *Gateway) Router() *router.Router {
	g.routeMu.RLock()
	defer g.routeMu.RUnlock()
	return g.router
}

// ReplaceRouting swaps in a freshly compiled router. In-flight calls keep
// the router they resolved against; new calls observe the replacement.
// Backend connections are untouched: rules may only point at backends that
// were declared at construction time.
func (g *Gateway) ReplaceRouting(rules []router.Rule) {
	compiled := router.New(rules)
	g.routeMu.Lock()
	g.router = compiled
	g.routeMu.Unlock()
	logging.Info("Gateway", "routing replaced: %d rules", len(rules))
}

// ReplaceMiddleware swaps in a new middleware chain. In-flight calls finish
// on the chain they started with.
func (g *Gateway) ReplaceMiddleware(chain []middleware.Middleware) {
	g.routeMu.Lock()
	g.middleware = chain
	g.routeMu.Unlock()
	logging.Info("Gateway", "middleware chain replaced: %d stages", len(chain))
}

// Close fans out Close across every backend (errors tolerated, logged) and
// clears the tool index.
func (g *Gateway) Close() error {
	var firstErr error
	for name, client := range g.backends {
		if err := client.Close(); err != nil {
			logging.Warn("Gateway", "error closing backend %s: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	g.indexMu.Lock()
	g.index = make(map[string]backendpkg.ToolInfo)
	g.indexMu.Unlock()
	return firstErr
}
