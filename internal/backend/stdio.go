package backend

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

// StdioClient spawns a child process and speaks MCP over its stdin/stdout.
type StdioClient struct {
	baseClient
}

func newStdioClient(name string, cfg Config) *StdioClient {
	return &StdioClient{baseClient: baseClient{name: name, cfg: cfg}}
}

// Connect spawns the configured command and performs the MCP initialize
// handshake. It is a no-op if already connected.
func (c *StdioClient) Connect(ctx context.Context) error {
	if c.Connected() {
		return nil
	}

	envStrings := make([]string, 0, len(c.cfg.Env))
	for k, v := range c.cfg.Env {
		envStrings = append(envStrings, fmt.Sprintf("%s=%s", k, v))
	}

	mcpClient, err := client.NewStdioMCPClient(c.cfg.Command, envStrings, c.cfg.Args...)
	if err != nil {
		return fmt.Errorf("backend %s: spawn stdio client: %w", c.name, err)
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
	logging.Info("Backend", "connected stdio backend %s (%s)", c.name, c.cfg.Command)
	return nil
}
