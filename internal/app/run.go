package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giantswarm/mcp-gateway/internal/aggregator"
	"github.com/giantswarm/mcp-gateway/internal/analytics"
	"github.com/giantswarm/mcp-gateway/internal/gatewayconfig"
	"github.com/giantswarm/mcp-gateway/internal/interceptor"
	"github.com/giantswarm/mcp-gateway/internal/listener"
	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

// shutdownTimeout bounds how long a graceful shutdown may take before the
// process gives up on in-flight requests.
const shutdownTimeout = 10 * time.Second

// Application owns the wired runtime: gateway, collector, interceptor,
// listener, and the optional config watcher.
type Application struct {
	configPath string
	watch      bool

	gateway     *aggregator.Gateway
	collector   *analytics.Collector
	interceptor *interceptor.Interceptor
	listener    *listener.Listener
	watcher     *gatewayconfig.Watcher
}

// NewApplication bootstraps the full runtime from the config file at
// configPath. The gateway is constructed but not yet connected; Run does
// that so construction stays cheap and testable.
func NewApplication(configPath string, logLevel logging.LogLevel, watch bool) (*Application, error) {
	logging.Init(logLevel, os.Stderr)

	cfg, err := gatewayconfig.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	gateway, err := BuildGateway(cfg)
	if err != nil {
		return nil, err
	}

	collector, err := BuildCollector(cfg.Analytics)
	if err != nil {
		return nil, err
	}

	ic := BuildInterceptor(cfg.Analytics, collector)

	lst, err := listener.New(listener.Config{
		Gateway:     gateway,
		Interceptor: ic,
		Addr:        cfg.Gateway.Listen,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	app := &Application{
		configPath:  configPath,
		watch:       watch,
		gateway:     gateway,
		collector:   collector,
		interceptor: ic,
		listener:    lst,
	}

	if watch {
		app.watcher = gatewayconfig.NewWatcher(configPath, app.applyConfig)
	}

	return app, nil
}

// applyConfig applies a reloaded config document to the running gateway.
// Only routing and middleware are replaced live; backend connections and
// the analytics pipeline keep their construction-time settings.
func (a *Application) applyConfig(cfg *gatewayconfig.Config) {
	a.gateway.ReplaceRouting(BuildRouting(cfg.Gateway.Routing))
	a.gateway.ReplaceMiddleware(BuildMiddleware(cfg.Gateway.Middleware))
}

// Gateway exposes the wired gateway, for the status command and tests.
func (a *Application) Gateway() *aggregator.Gateway {
	return a.gateway
}

// Collector exposes the wired collector (nil when analytics is disabled).
func (a *Application) Collector() *analytics.Collector {
	return a.collector
}

// Run connects the backends, starts the listener, and blocks until ctx is
// cancelled or an interrupt/termination signal arrives, then shuts
// everything down in reverse order.
func (a *Application) Run(ctx context.Context) error {
	if err := a.gateway.Connect(ctx); err != nil {
		return fmt.Errorf("app: connect backends: %w", err)
	}

	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			logging.Warn("Bootstrap", "config watcher unavailable: %v", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.listener.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logging.Info("Bootstrap", "received %s, shutting down", sig)
	case <-ctx.Done():
		logging.Info("Bootstrap", "context cancelled, shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("app: listener: %w", err)
		}
		return nil
	}

	return a.Shutdown()
}

// Shutdown tears the runtime down: watcher first, then the listener (which
// stops the HTTP server, drains the interceptor, closes backends, and
// forgets its session records), then the collector with its final flush.
func (a *Application) Shutdown() error {
	if a.watcher != nil {
		a.watcher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.listener.Shutdown(ctx)

	if a.collector != nil {
		snap := a.collector.Snapshot()
		logging.Info("Bootstrap", "analytics summary: %d calls, %d errors over %d tools",
			snap.TotalCalls, snap.TotalErrors, len(snap.Tools))
		for _, s := range a.collector.GetTopSessions(5) {
			logging.Info("Bootstrap", "session %s: %d calls, %.1fms avg",
				logging.TruncateSessionID(s.SessionID), s.Stats.Count, s.Stats.AvgMs)
		}
		a.collector.Destroy(ctx)
	}

	logging.Info("Bootstrap", "shutdown complete")
	return err
}
