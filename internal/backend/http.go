package backend

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

// HTTPClient dials a streamable-HTTP MCP endpoint.
type HTTPClient struct {
	baseClient
}

func newHTTPClient(name string, cfg Config) *HTTPClient {
	return &HTTPClient{baseClient: baseClient{name: name, cfg: cfg}}
}

// Connect dials the configured URL and performs the MCP initialize
// handshake. It is a no-op if already connected.
func (c *HTTPClient) Connect(ctx context.Context) error {
	if c.Connected() {
		return nil
	}

	var opts []transport.StreamableHTTPCOption
	if len(c.cfg.Headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(c.cfg.Headers))
	}

	mcpClient, err := client.NewStreamableHttpClient(c.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("backend %s: create streamable-http client: %w", c.name, err)
	}

	if _, err := mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    "mcp-gateway",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}); err != nil {
		_ = mcpClient.Close()
		return fmt.Errorf("backend %s: initialize: %w", c.name, err)
	}

	c.setConnected(mcpClient)
	logging.Info("Backend", "connected http backend %s at %s", c.name, c.cfg.URL)
	return nil
}
