// Package gatewayconfig loads the YAML configuration document that drives
// both the aggregating gateway (backends, routing, middleware) and the
// analytics collector (exporter, sampling, flushing). It also provides an
// optional fsnotify-based watcher that re-reads the file on change so
// routing and middleware can be replaced on a running gateway.
package gatewayconfig

// ServerConfig is the YAML shape of one backend declaration. Exactly one of
// the HTTP (url/headers) or stdio (command/args/env) field sets is expected;
// Type disambiguates when both could apply.
type ServerConfig struct {
	Type string `yaml:"type,omitempty"` // "http" or "stdio"; inferred when empty

	// HTTP backend fields.
	URL         string            `yaml:"url,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	HeaderFiles map[string]string `yaml:"headerFiles,omitempty"` // header name -> file holding the value

	// Stdio backend fields.
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// RoutingRuleConfig is the YAML shape of one routing rule.
type RoutingRuleConfig struct {
	Pattern string `yaml:"pattern"`
	Server  string `yaml:"server"`
}

// MiddlewareConfig is the YAML shape of one middleware stage. Type selects
// which built-in middleware is constructed; only the fields for that type
// are read. Transform middleware carries code, not data, so it is not
// expressible in YAML and must be installed programmatically.
type MiddlewareConfig struct {
	Type string `yaml:"type"` // "filter" or "cache"

	// Filter fields.
	Allow []string `yaml:"allow,omitempty"`
	Deny  []string `yaml:"deny,omitempty"`

	// Cache fields.
	TTLSeconds int `yaml:"ttlSeconds,omitempty"`
	MaxSize    int `yaml:"maxSize,omitempty"`
}

// GatewayConfig is the gateway half of the document.
type GatewayConfig struct {
	Name       string                  `yaml:"name,omitempty"`
	Version    string                  `yaml:"version,omitempty"`
	Listen     string                  `yaml:"listen,omitempty"`
	Servers    map[string]ServerConfig `yaml:"servers"`
	// ServerOrder fixes the aggregation tie-break order. When empty the
	// declared YAML order cannot be recovered from the map, so names are
	// sorted for determinism.
	ServerOrder []string            `yaml:"serverOrder,omitempty"`
	Routing     []RoutingRuleConfig `yaml:"routing"`
	Middleware  []MiddlewareConfig  `yaml:"middleware,omitempty"`
}

// AnalyticsConfig is the collector half of the document.
type AnalyticsConfig struct {
	Enabled          bool              `yaml:"enabled"`
	Exporter         string            `yaml:"exporter,omitempty"` // "console", "json", "otlp"
	ExporterPath     string            `yaml:"exporterPath,omitempty"`
	SampleRate       float64           `yaml:"sampleRate"`
	FlushIntervalMs  int               `yaml:"flushIntervalMs"`
	MaxBufferSize    int               `yaml:"maxBufferSize,omitempty"`
	ToolWindowSize   int               `yaml:"toolWindowSize,omitempty"`
	Metadata         map[string]string `yaml:"metadata,omitempty"`
	Tracing          bool              `yaml:"tracing,omitempty"`
	SamplingStrategy string            `yaml:"samplingStrategy,omitempty"` // "per_call" or "per_session"
}

// Config is the root YAML document.
type Config struct {
	LogLevel  string          `yaml:"logLevel,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}
