package aggregator

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-gateway/internal/backend"
	"github.com/giantswarm/mcp-gateway/internal/middleware"
	"github.com/giantswarm/mcp-gateway/internal/router"
)

// fakeClient is an in-memory backend.Client used to exercise Gateway
// without a real transport.
type fakeClient struct {
	name      string
	connected bool
	tools     []backend.ToolInfo
	callCount int
	callErr   error
	connectErr error
}

func (f *fakeClient) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}
func (f *fakeClient) ListTools(ctx context.Context) ([]backend.ToolInfo, error) { return f.tools, nil }
func (f *fakeClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	f.callCount++
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent("ok")}}, nil
}
func (f *fakeClient) Close() error                { return nil }
func (f *fakeClient) Connected() bool             { return f.connected }
func (f *fakeClient) InvalidateToolCache()        {}
func (f *fakeClient) Config() backend.Config      { return backend.Config{Kind: backend.KindHTTP, URL: "http://" + f.name} }

func newTestGateway(t *testing.T, backends map[string]*fakeClient, rules []router.Rule, mw []middleware.Middleware) *Gateway {
	t.Helper()
	clients := make(map[string]backend.Client, len(backends))
	order := make([]string, 0, len(backends))
	for name, c := range backends {
		clients[name] = c
		order = append(order, name)
	}
	return &Gateway{
		name:        "test-gateway",
		version:     "1.0.0",
		router:      router.New(rules),
		middleware:  mw,
		backends:    clients,
		backendName: order,
		index:       make(map[string]backend.ToolInfo),
	}
}

func TestGateway_CallTool_RoutingFallback(t *testing.T) {
	a := &fakeClient{name: "a", connected: true}
	b := &fakeClient{name: "b", connected: true}
	gw := newTestGateway(t, map[string]*fakeClient{"a": a, "b": b}, []router.Rule{
		{Pattern: "a_*", Server: "a"},
		{Pattern: "*", Server: "b"},
	}, nil)

	_, err := gw.CallTool(context.Background(), "a_ping", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, a.callCount)
	assert.Equal(t, 0, b.callCount)

	_, err = gw.CallTool(context.Background(), "c_ping", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, b.callCount)
}

func TestGateway_CallTool_NoRoute(t *testing.T) {
	gw := newTestGateway(t, nil, nil, nil)
	result, err := gw.CallTool(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGateway_CallTool_BackendNotFound(t *testing.T) {
	gw := newTestGateway(t, nil, []router.Rule{{Pattern: "*", Server: "ghost"}}, nil)
	result, err := gw.CallTool(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGateway_CallTool_BackendErrorBecomesResult(t *testing.T) {
	a := &fakeClient{name: "a", connected: true, callErr: errors.New("boom")}
	gw := newTestGateway(t, map[string]*fakeClient{"a": a}, []router.Rule{{Pattern: "*", Server: "a"}}, nil)

	result, err := gw.CallTool(context.Background(), "t", nil)
	require.NoError(t, err)
	require.True(t, result.IsError)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Contains(t, text.Text, "Backend error: boom")
}

func TestGateway_CallTool_MiddlewareDenies(t *testing.T) {
	a := &fakeClient{name: "a", connected: true}
	filter := middleware.NewFilter(nil, []string{"danger*"})
	gw := newTestGateway(t, map[string]*fakeClient{"a": a}, []router.Rule{{Pattern: "*", Server: "a"}}, []middleware.Middleware{filter})

	result, err := gw.CallTool(context.Background(), "danger_rm", nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, 0, a.callCount)
}

func TestGateway_RefreshToolIndex_Aggregates(t *testing.T) {
	a := &fakeClient{name: "a", connected: true, tools: []backend.ToolInfo{{Name: "shared", Backend: "a"}}}
	b := &fakeClient{name: "b", connected: true, tools: []backend.ToolInfo{{Name: "shared", Backend: "b"}, {Name: "only_b", Backend: "b"}}}
	gw := newTestGateway(t, map[string]*fakeClient{"a": a, "b": b}, nil, nil)
	gw.backendName = []string{"a", "b"}

	require.NoError(t, gw.RefreshToolIndex(context.Background()))

	gw.indexMu.RLock()
	defer gw.indexMu.RUnlock()
	assert.Len(t, gw.index, 2)
	assert.Equal(t, "a", gw.index["shared"].Backend)
}

func TestGateway_GetBackends(t *testing.T) {
	a := &fakeClient{name: "a", connected: true}
	gw := newTestGateway(t, map[string]*fakeClient{"a": a}, nil, nil)
	gw.backendName = []string{"a"}

	snapshots := gw.GetBackends()
	require.Len(t, snapshots, 1)
	assert.Equal(t, "a", snapshots[0].Name)
	assert.True(t, snapshots[0].Connected)
}

func TestGateway_Close_ClearsIndex(t *testing.T) {
	a := &fakeClient{name: "a", connected: true}
	gw := newTestGateway(t, map[string]*fakeClient{"a": a}, nil, nil)
	gw.index["t"] = backend.ToolInfo{Name: "t"}

	require.NoError(t, gw.Close())

	gw.indexMu.RLock()
	defer gw.indexMu.RUnlock()
	assert.Empty(t, gw.index)
}

func TestGateway_ReplaceRoutingTakesEffect(t *testing.T) {
	a := &fakeClient{name: "a", connected: true}
	b := &fakeClient{name: "b", connected: true}
	gw := newTestGateway(t, map[string]*fakeClient{"a": a, "b": b}, []router.Rule{
		{Pattern: "*", Server: "a"},
	}, nil)

	_, err := gw.CallTool(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, a.callCount)

	gw.ReplaceRouting([]router.Rule{{Pattern: "*", Server: "b"}})

	_, err = gw.CallTool(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, a.callCount)
	assert.Equal(t, 1, b.callCount)
}

func TestGateway_ReplaceMiddlewareTakesEffect(t *testing.T) {
	a := &fakeClient{name: "a", connected: true}
	gw := newTestGateway(t, map[string]*fakeClient{"a": a}, []router.Rule{
		{Pattern: "*", Server: "a"},
	}, nil)

	gw.ReplaceMiddleware([]middleware.Middleware{middleware.NewFilter(nil, []string{"*"})})

	result, err := gw.CallTool(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Zero(t, a.callCount)
}
