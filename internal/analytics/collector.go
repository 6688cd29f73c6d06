package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

const (
	// DefaultMaxBufferSize bounds the debug ring buffer when Config.MaxBufferSize is unset.
	DefaultMaxBufferSize = 10000
	// DefaultToolWindowSize bounds the per-tool percentile window when Config.ToolWindowSize is unset.
	DefaultToolWindowSize = 2048
	// DefaultFlushInterval is the default timer-driven flush cadence. New does
	// not substitute it for a zero Config.FlushInterval; zero disables the timer.
	DefaultFlushInterval = 5 * time.Second
)

// Config configures a Collector.
type Config struct {
	Exporter       Exporter
	FlushInterval  time.Duration // 0 disables the background timer
	MaxBufferSize  int           // debug ring buffer capacity; default DefaultMaxBufferSize
	ToolWindowSize int           // per-tool percentile window; default DefaultToolWindowSize, min 1
	OnFlushError   func(error)   // called by the timer-driven flush on error; default logs
}

// Collector is the statistics collector: it records events into
// lifetime-exact accumulators plus a bounded percentile window, keeps a
// debug ring buffer and a pending-export queue, and flushes batches to an
// Exporter on a single-flight, timer-driven cadence.
type Collector struct {
	startTime  time.Time
	windowSize int
	maxBuffer  int
	exporter   Exporter
	onFlushErr func(error)

	mu          sync.Mutex
	totalCalls  int64
	totalErrors int64
	toolAcc     map[string]*toolAccumulator
	sessionAcc  map[string]*sessionAccumulator
	ring        []ToolCallEvent
	pending     []ToolCallEvent

	flushGroup singleflight.Group

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a Collector and, if Config.FlushInterval > 0, starts the
// background flush timer.
func New(cfg Config) *Collector {
	windowSize := cfg.ToolWindowSize
	if windowSize <= 0 {
		windowSize = DefaultToolWindowSize
	}
	maxBuffer := cfg.MaxBufferSize
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBufferSize
	}
	onFlushErr := cfg.OnFlushError
	if onFlushErr == nil {
		onFlushErr = func(err error) { logging.Error("Analytics", err, "timer-driven flush failed") }
	}

	c := &Collector{
		startTime:  time.Now(),
		windowSize: windowSize,
		maxBuffer:  maxBuffer,
		exporter:   cfg.Exporter,
		onFlushErr: onFlushErr,
		toolAcc:    make(map[string]*toolAccumulator),
		sessionAcc: make(map[string]*sessionAccumulator),
		stopCh:     make(chan struct{}),
	}

	if cfg.FlushInterval > 0 {
		c.wg.Add(1)
		go c.runFlushTimer(cfg.FlushInterval)
	}

	return c
}

func (c *Collector) runFlushTimer(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Flush(context.Background()); err != nil {
				c.onFlushErr(err)
			}
		case <-c.stopCh:
			return
		}
	}
}

// Record stores event into the lifetime accumulators (global + per-session,
// and the session's own per-tool sub-map), the debug ring buffer, and the
// pending export queue.
func (c *Collector) Record(event ToolCallEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalCalls++
	if !event.Success {
		c.totalErrors++
	}

	acc, ok := c.toolAcc[event.ToolName]
	if !ok {
		acc = newToolAccumulator(c.windowSize)
		c.toolAcc[event.ToolName] = acc
	}
	acc.record(event.DurationMs, event.Success, event.Timestamp, c.windowSize)

	if event.SessionID != "" {
		sess, ok := c.sessionAcc[event.SessionID]
		if !ok {
			sess = newSessionAccumulator(c.windowSize)
			c.sessionAcc[event.SessionID] = sess
		}
		sess.overall.record(event.DurationMs, event.Success, event.Timestamp, c.windowSize)

		toolAcc, ok := sess.tools[event.ToolName]
		if !ok {
			toolAcc = newToolAccumulator(c.windowSize)
			sess.tools[event.ToolName] = toolAcc
		}
		toolAcc.record(event.DurationMs, event.Success, event.Timestamp, c.windowSize)
	}

	c.ring = append(c.ring, event)
	if len(c.ring) > c.maxBuffer {
		c.ring = c.ring[len(c.ring)-c.maxBuffer:]
	}

	c.pending = append(c.pending, event)
}

// Snapshot returns the full derived read model: lifetime totals plus
// per-tool and per-session stats.
func (c *Collector) Snapshot() AnalyticsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := AnalyticsSnapshot{
		TotalCalls:  c.totalCalls,
		TotalErrors: c.totalErrors,
		UptimeMs:    float64(time.Since(c.startTime).Milliseconds()),
		Tools:       make(map[string]ToolStats, len(c.toolAcc)),
		Sessions:    make(map[string]SessionStats, len(c.sessionAcc)),
	}
	if c.totalCalls > 0 {
		snap.ErrorRate = float64(c.totalErrors) / float64(c.totalCalls)
	}
	for name, acc := range c.toolAcc {
		snap.Tools[name] = acc.stats()
	}
	for id, sess := range c.sessionAcc {
		stats := SessionStats{ToolStats: sess.overall.stats(), Tools: make(map[string]ToolStats, len(sess.tools))}
		for name, acc := range sess.tools {
			stats.Tools[name] = acc.stats()
		}
		snap.Sessions[id] = stats
	}
	return snap
}

// SessionSummary pairs a session id with its rolled-up stats, returned by
// GetTopSessions in ranked order.
type SessionSummary struct {
	SessionID string
	Stats     ToolStats
}

// GetTopSessions returns up to k sessions ranked by call count descending,
// ties broken by most-recent LastCalledAt.
func (c *Collector) GetTopSessions(k int) []SessionSummary {
	c.mu.Lock()
	summaries := make([]SessionSummary, 0, len(c.sessionAcc))
	for id, sess := range c.sessionAcc {
		summaries = append(summaries, SessionSummary{SessionID: id, Stats: sess.overall.stats()})
	}
	c.mu.Unlock()

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Stats.Count != summaries[j].Stats.Count {
			return summaries[i].Stats.Count > summaries[j].Stats.Count
		}
		return summaries[i].Stats.LastCalledAt.After(summaries[j].Stats.LastCalledAt)
	})

	if k >= 0 && k < len(summaries) {
		summaries = summaries[:k]
	}
	return summaries
}

// Flush drains the pending queue in batches, handing each to the exporter.
// Single-flight: concurrent callers share one in-flight drain and observe
// its result rather than each starting their own. On exporter failure the
// unsent batch is prepended back onto pending (preserving order relative to
// events recorded meanwhile) and the error is returned to every waiter.
func (c *Collector) Flush(ctx context.Context) error {
	if c.exporter == nil {
		return nil
	}

	_, err, _ := c.flushGroup.Do("flush", func() (interface{}, error) {
		for {
			c.mu.Lock()
			if len(c.pending) == 0 {
				c.mu.Unlock()
				return nil, nil
			}
			batch := c.pending
			c.pending = nil
			c.mu.Unlock()

			if exportErr := c.exporter.Export(ctx, batch); exportErr != nil {
				c.mu.Lock()
				c.pending = append(append([]ToolCallEvent{}, batch...), c.pending...)
				c.mu.Unlock()
				return nil, exportErr
			}
		}
	})
	return err
}

// Destroy stops the background flush timer and performs one final flush.
// Flush errors are logged, not returned, since there is no caller left to
// hand them to.
func (c *Collector) Destroy(ctx context.Context) {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	if err := c.Flush(ctx); err != nil {
		logging.Error("Analytics", err, "final flush on destroy failed")
	}
}

// Reset clears all state: ring buffer, pending queue, accumulators, and
// lifetime totals. The start time is not reset; uptime keeps accumulating.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalCalls = 0
	c.totalErrors = 0
	c.toolAcc = make(map[string]*toolAccumulator)
	c.sessionAcc = make(map[string]*sessionAccumulator)
	c.ring = nil
	c.pending = nil
}
