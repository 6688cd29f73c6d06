package gatewayconfig

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

// GetDefaultConfig returns the configuration used when fields are absent
// from the loaded document.
func GetDefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Gateway: GatewayConfig{
			Name:    "mcp-proxy",
			Version: "1.0.0",
			Listen:  "localhost:8090",
		},
		Analytics: AnalyticsConfig{
			Enabled:          true,
			Exporter:         "console",
			SampleRate:       1.0,
			FlushIntervalMs:  5000,
			MaxBufferSize:    10000,
			ToolWindowSize:   2048,
			SamplingStrategy: "per_call",
		},
	}
}

// Load reads and validates the YAML document at path, starting from the
// defaults so absent fields keep their documented values.
func Load(path string) (*Config, error) {
	config := GetDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := resolveHeaderFiles(&config); err != nil {
		return nil, err
	}
	if err := Validate(&config); err != nil {
		return nil, err
	}

	logging.Info("ConfigLoader", "loaded configuration from %s (%d backends, %d routing rules)",
		path, len(config.Gateway.Servers), len(config.Gateway.Routing))
	return &config, nil
}

// resolveHeaderFiles reads HTTP header values from headerFiles indirections,
// keeping bearer tokens and similar secrets out of the config file itself.
// An explicit inline header always wins over its file counterpart.
func resolveHeaderFiles(config *Config) error {
	for name, srv := range config.Gateway.Servers {
		if len(srv.HeaderFiles) == 0 {
			continue
		}
		if srv.Headers == nil {
			srv.Headers = make(map[string]string, len(srv.HeaderFiles))
		}
		for header, file := range srv.HeaderFiles {
			if _, exists := srv.Headers[header]; exists {
				continue
			}
			value, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("config: backend %s: read header file %s: %w", name, file, err)
			}
			srv.Headers[header] = strings.TrimSpace(string(value))
			logging.Info("ConfigLoader", "loaded header %s for backend %s from file", header, name)
		}
		config.Gateway.Servers[name] = srv
	}
	return nil
}

// Validate checks the cross-field consistency rules the YAML schema cannot
// express: backend kind inference, routing targets, sampling bounds.
func Validate(config *Config) error {
	for name, srv := range config.Gateway.Servers {
		switch kind := inferKind(srv); kind {
		case "http", "stdio":
		case "":
			return fmt.Errorf("config: backend %s: neither url nor command set", name)
		default:
			return fmt.Errorf("config: backend %s: unknown type %q", name, kind)
		}
	}

	for i, rule := range config.Gateway.Routing {
		if rule.Pattern == "" {
			return fmt.Errorf("config: routing rule %d: pattern is empty", i)
		}
		if _, ok := config.Gateway.Servers[rule.Server]; !ok {
			return fmt.Errorf("config: routing rule %d: unknown server %q", i, rule.Server)
		}
	}

	for i, mw := range config.Gateway.Middleware {
		switch mw.Type {
		case "filter", "cache":
		default:
			return fmt.Errorf("config: middleware %d: unknown type %q", i, mw.Type)
		}
	}

	for _, name := range config.Gateway.ServerOrder {
		if _, ok := config.Gateway.Servers[name]; !ok {
			return fmt.Errorf("config: serverOrder names unknown server %q", name)
		}
	}

	if rate := config.Analytics.SampleRate; rate < 0 || rate > 1 {
		return fmt.Errorf("config: analytics sampleRate %v outside [0,1]", rate)
	}
	switch config.Analytics.SamplingStrategy {
	case "", "per_call", "per_session":
	default:
		return fmt.Errorf("config: unknown samplingStrategy %q", config.Analytics.SamplingStrategy)
	}
	switch config.Analytics.Exporter {
	case "", "console", "json", "otlp":
	default:
		return fmt.Errorf("config: unknown exporter %q", config.Analytics.Exporter)
	}
	if config.Analytics.Exporter == "json" && config.Analytics.ExporterPath == "" {
		return fmt.Errorf("config: exporter json requires exporterPath")
	}

	return nil
}

// inferKind returns "http" or "stdio" for a server declaration, preferring
// the explicit Type field and falling back to which field set is populated.
func inferKind(srv ServerConfig) string {
	if srv.Type != "" {
		return srv.Type
	}
	if srv.URL != "" {
		return "http"
	}
	if srv.Command != "" {
		return "stdio"
	}
	return ""
}

// OrderedServerNames returns the backend names in aggregation tie-break
// order: the explicit serverOrder when given, otherwise sorted (YAML map
// order is not recoverable, so sorted order is the deterministic fallback).
func (g GatewayConfig) OrderedServerNames() []string {
	if len(g.ServerOrder) > 0 {
		return g.ServerOrder
	}
	names := make([]string, 0, len(g.Servers))
	for name := range g.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
