// Package app bootstraps the gateway process: it turns a loaded
// configuration document into wired gateway, collector, interceptor, and
// listener instances and runs them until shutdown.
package app

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-gateway/internal/aggregator"
	"github.com/giantswarm/mcp-gateway/internal/analytics"
	"github.com/giantswarm/mcp-gateway/internal/backend"
	"github.com/giantswarm/mcp-gateway/internal/gatewayconfig"
	"github.com/giantswarm/mcp-gateway/internal/interceptor"
	"github.com/giantswarm/mcp-gateway/internal/middleware"
	"github.com/giantswarm/mcp-gateway/internal/router"
)

const instrumentationName = "github.com/giantswarm/mcp-gateway"

// BuildGateway converts the gateway half of a config document into a
// constructed (not yet connected) aggregator.Gateway.
func BuildGateway(cfg *gatewayconfig.Config) (*aggregator.Gateway, error) {
	servers := make(map[string]backend.Config, len(cfg.Gateway.Servers))
	for name, srv := range cfg.Gateway.Servers {
		bcfg, err := backendConfig(srv)
		if err != nil {
			return nil, fmt.Errorf("app: backend %s: %w", name, err)
		}
		servers[name] = bcfg
	}

	return aggregator.New(aggregator.Config{
		Name:        cfg.Gateway.Name,
		Version:     cfg.Gateway.Version,
		Servers:     servers,
		ServerOrder: cfg.Gateway.OrderedServerNames(),
		Routing:     BuildRouting(cfg.Gateway.Routing),
		Middleware:  BuildMiddleware(cfg.Gateway.Middleware),
	})
}

func backendConfig(srv gatewayconfig.ServerConfig) (backend.Config, error) {
	switch {
	case srv.Type == "http" || (srv.Type == "" && srv.URL != ""):
		return backend.Config{Kind: backend.KindHTTP, URL: srv.URL, Headers: srv.Headers}, nil
	case srv.Type == "stdio" || (srv.Type == "" && srv.Command != ""):
		return backend.Config{Kind: backend.KindStdio, Command: srv.Command, Args: srv.Args, Env: srv.Env}, nil
	default:
		return backend.Config{}, fmt.Errorf("unknown backend type %q", srv.Type)
	}
}

// BuildRouting converts config routing rules into router rules, preserving
// evaluation order.
func BuildRouting(rules []gatewayconfig.RoutingRuleConfig) []router.Rule {
	out := make([]router.Rule, len(rules))
	for i, r := range rules {
		out[i] = router.Rule{Pattern: r.Pattern, Server: r.Server}
	}
	return out
}

// BuildMiddleware constructs the declared middleware chain in config order.
// Only filter and cache stages are expressible in YAML; transform and custom
// stages carry code and are installed programmatically by embedders.
func BuildMiddleware(stages []gatewayconfig.MiddlewareConfig) []middleware.Middleware {
	out := make([]middleware.Middleware, 0, len(stages))
	for _, stage := range stages {
		switch stage.Type {
		case "filter":
			out = append(out, middleware.NewFilter(stage.Allow, stage.Deny))
		case "cache":
			out = append(out, middleware.NewCache(time.Duration(stage.TTLSeconds)*time.Second, stage.MaxSize, nil))
		}
	}
	return out
}

// BuildExporter constructs the configured analytics exporter. The otlp
// variant records against the globally registered MeterProvider; wiring an
// actual OTLP endpoint behind it is the operator's job.
func BuildExporter(cfg gatewayconfig.AnalyticsConfig) (analytics.Exporter, error) {
	switch cfg.Exporter {
	case "", "console":
		return analytics.NewConsoleExporter(), nil
	case "json":
		return analytics.NewJSONLinesExporter(cfg.ExporterPath), nil
	case "otlp":
		return analytics.NewOTLPExporter(otel.Meter(instrumentationName))
	default:
		return nil, fmt.Errorf("app: unknown exporter %q", cfg.Exporter)
	}
}

// BuildCollector constructs the analytics collector for cfg, or returns nil
// when analytics is disabled.
func BuildCollector(cfg gatewayconfig.AnalyticsConfig) (*analytics.Collector, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	exporter, err := BuildExporter(cfg)
	if err != nil {
		return nil, err
	}
	return analytics.New(analytics.Config{
		Exporter:       exporter,
		FlushInterval:  time.Duration(cfg.FlushIntervalMs) * time.Millisecond,
		MaxBufferSize:  cfg.MaxBufferSize,
		ToolWindowSize: cfg.ToolWindowSize,
	}), nil
}

// BuildInterceptor constructs the transport interceptor feeding collector,
// stamping the configured metadata onto every event. Returns nil when
// collector is nil.
func BuildInterceptor(cfg gatewayconfig.AnalyticsConfig, collector *analytics.Collector) *interceptor.Interceptor {
	if collector == nil {
		return nil
	}

	strategy := interceptor.PerCall
	if cfg.SamplingStrategy == "per_session" {
		strategy = interceptor.PerSession
	}

	var tracer trace.Tracer
	if cfg.Tracing {
		tracer = otel.Tracer(instrumentationName)
	}

	metadata := cfg.Metadata
	return interceptor.New(interceptor.Config{
		SampleRate: cfg.SampleRate,
		Strategy:   strategy,
		Tracer:     tracer,
		OnEvent: func(event analytics.ToolCallEvent) {
			if len(metadata) > 0 {
				event.Metadata = metadata
			}
			collector.Record(event)
		},
	})
}
