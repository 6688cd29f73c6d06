package gatewayconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
gateway:
  servers:
    a:
      url: http://localhost:9001/mcp
  routing:
    - pattern: "*"
      server: a
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mcp-proxy", cfg.Gateway.Name)
	assert.Equal(t, "1.0.0", cfg.Gateway.Version)
	assert.Equal(t, "localhost:8090", cfg.Gateway.Listen)
	assert.Equal(t, 1.0, cfg.Analytics.SampleRate)
	assert.Equal(t, 5000, cfg.Analytics.FlushIntervalMs)
	assert.Equal(t, 2048, cfg.Analytics.ToolWindowSize)
	assert.Equal(t, "per_call", cfg.Analytics.SamplingStrategy)
	assert.Equal(t, "console", cfg.Analytics.Exporter)
	assert.True(t, cfg.Analytics.Enabled)
}

func TestLoad_FullDocument(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
gateway:
  name: edge-proxy
  version: 2.1.0
  listen: 0.0.0.0:9090
  servers:
    files:
      command: mcp-files
      args: ["--root", "/srv"]
      env:
        LANG: C
    search:
      url: http://localhost:9001/mcp
      headers:
        Authorization: Bearer abc
  serverOrder: [search, files]
  routing:
    - pattern: "search_*"
      server: search
    - pattern: "*"
      server: files
  middleware:
    - type: filter
      deny: ["danger*"]
    - type: cache
      ttlSeconds: 60
      maxSize: 100
analytics:
  enabled: true
  exporter: json
  exporterPath: /tmp/events.jsonl
  sampleRate: 0.5
  flushIntervalMs: 1000
  samplingStrategy: per_session
  tracing: true
  metadata:
    env: prod
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "edge-proxy", cfg.Gateway.Name)
	assert.Len(t, cfg.Gateway.Servers, 2)
	assert.Equal(t, "mcp-files", cfg.Gateway.Servers["files"].Command)
	assert.Equal(t, "Bearer abc", cfg.Gateway.Servers["search"].Headers["Authorization"])
	assert.Equal(t, []string{"search", "files"}, cfg.Gateway.OrderedServerNames())
	require.Len(t, cfg.Gateway.Routing, 2)
	assert.Equal(t, "search_*", cfg.Gateway.Routing[0].Pattern)
	require.Len(t, cfg.Gateway.Middleware, 2)
	assert.Equal(t, "filter", cfg.Gateway.Middleware[0].Type)
	assert.Equal(t, 60, cfg.Gateway.Middleware[1].TTLSeconds)
	assert.Equal(t, 0.5, cfg.Analytics.SampleRate)
	assert.Equal(t, "per_session", cfg.Analytics.SamplingStrategy)
	assert.True(t, cfg.Analytics.Tracing)
	assert.Equal(t, "prod", cfg.Analytics.Metadata["env"])
}

func TestLoad_HeaderFileIndirection(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("secret-token\n"), 0o600))

	path := writeConfig(t, `
gateway:
  servers:
    a:
      url: http://localhost:9001/mcp
      headerFiles:
        Authorization: `+tokenPath+`
  routing:
    - pattern: "*"
      server: a
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Gateway.Servers["a"].Headers["Authorization"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	base := func() Config {
		cfg := GetDefaultConfig()
		cfg.Gateway.Servers = map[string]ServerConfig{
			"a": {URL: "http://localhost:9001/mcp"},
		}
		cfg.Gateway.Routing = []RoutingRuleConfig{{Pattern: "*", Server: "a"}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name: "backend with neither url nor command",
			mutate: func(c *Config) {
				c.Gateway.Servers["b"] = ServerConfig{}
			},
			wantErr: "neither url nor command",
		},
		{
			name: "routing rule with unknown server",
			mutate: func(c *Config) {
				c.Gateway.Routing = append(c.Gateway.Routing, RoutingRuleConfig{Pattern: "x_*", Server: "ghost"})
			},
			wantErr: "unknown server",
		},
		{
			name: "empty routing pattern",
			mutate: func(c *Config) {
				c.Gateway.Routing[0].Pattern = ""
			},
			wantErr: "pattern is empty",
		},
		{
			name: "unknown middleware type",
			mutate: func(c *Config) {
				c.Gateway.Middleware = []MiddlewareConfig{{Type: "teleport"}}
			},
			wantErr: "unknown type",
		},
		{
			name: "sample rate out of range",
			mutate: func(c *Config) {
				c.Analytics.SampleRate = 1.5
			},
			wantErr: "outside [0,1]",
		},
		{
			name: "unknown sampling strategy",
			mutate: func(c *Config) {
				c.Analytics.SamplingStrategy = "per_moon"
			},
			wantErr: "samplingStrategy",
		},
		{
			name: "json exporter without path",
			mutate: func(c *Config) {
				c.Analytics.Exporter = "json"
			},
			wantErr: "exporterPath",
		},
		{
			name: "serverOrder names unknown server",
			mutate: func(c *Config) {
				c.Gateway.ServerOrder = []string{"ghost"}
			},
			wantErr: "serverOrder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOrderedServerNames_SortedFallback(t *testing.T) {
	g := GatewayConfig{Servers: map[string]ServerConfig{
		"zulu":  {URL: "http://z"},
		"alpha": {URL: "http://a"},
	}}
	assert.Equal(t, []string{"alpha", "zulu"}, g.OrderedServerNames())
}
