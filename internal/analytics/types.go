// Package analytics is the observability collector: it records per-call
// timing/size/error facts, aggregates them into per-tool and per-session
// statistics with bounded-memory percentile windows, and hands batches to a
// pluggable exporter on a single-flight, timer-driven cadence.
package analytics

import "time"

// ToolCallEvent records one tool invocation. It is immutable once recorded.
type ToolCallEvent struct {
	ToolName     string
	SessionID    string // empty when not observed in a session context
	Timestamp    time.Time
	DurationMs   float64
	Success      bool
	ErrorMessage string // present only when Success is false
	ErrorCode    int    // present only when Success is false
	InputSize    int
	OutputSize   int
	Metadata     map[string]string
}

// ToolStats is the derived read model for one tool (or one session's slice
// of a tool, or a whole session).
type ToolStats struct {
	Count        int64
	ErrorCount   int64
	ErrorRate    float64
	P50Ms        float64
	P95Ms        float64
	P99Ms        float64
	AvgMs        float64
	LastCalledAt time.Time
}

// SessionStats is a ToolStats rollup for one session plus its per-tool
// breakdown.
type SessionStats struct {
	ToolStats
	Tools map[string]ToolStats
}

// AnalyticsSnapshot is the collector's full read model at a point in time.
type AnalyticsSnapshot struct {
	TotalCalls  int64
	TotalErrors int64
	ErrorRate   float64
	UptimeMs    float64
	Tools       map[string]ToolStats
	Sessions    map[string]SessionStats
}

// toolAccumulator holds lifetime-exact totals plus a bounded recent-duration
// window used only for percentile estimation.
type toolAccumulator struct {
	count           int64
	errorCount      int64
	totalMs         float64
	lastCalledAt    time.Time
	recentDurations []float64 // ring-buffer-like: oldest overwritten first
	nextSlot        int
}

func newToolAccumulator(windowSize int) *toolAccumulator {
	return &toolAccumulator{recentDurations: make([]float64, 0, windowSize)}
}

func (a *toolAccumulator) record(durationMs float64, success bool, at time.Time, windowSize int) {
	a.count++
	a.totalMs += durationMs
	if !success {
		a.errorCount++
	}
	a.lastCalledAt = at

	if len(a.recentDurations) < windowSize {
		a.recentDurations = append(a.recentDurations, durationMs)
		return
	}
	// Window full: overwrite the oldest slot in round-robin order so the
	// retained values stay a window of the most recent windowSize
	// durations without shifting the whole slice.
	a.recentDurations[a.nextSlot] = durationMs
	a.nextSlot = (a.nextSlot + 1) % windowSize
}

func (a *toolAccumulator) stats() ToolStats {
	stats := ToolStats{
		Count:        a.count,
		ErrorCount:   a.errorCount,
		LastCalledAt: a.lastCalledAt,
	}
	if a.count > 0 {
		stats.ErrorRate = float64(a.errorCount) / float64(a.count)
		stats.AvgMs = a.totalMs / float64(a.count)
	}
	window := make([]float64, len(a.recentDurations))
	copy(window, a.recentDurations)
	stats.P50Ms = percentile(window, 50)
	stats.P95Ms = percentile(window, 95)
	stats.P99Ms = percentile(window, 99)
	return stats
}

// sessionAccumulator is a ToolStats rollup for one session plus its
// per-tool sub-accumulators.
type sessionAccumulator struct {
	overall *toolAccumulator
	tools   map[string]*toolAccumulator
}

func newSessionAccumulator(windowSize int) *sessionAccumulator {
	return &sessionAccumulator{
		overall: newToolAccumulator(windowSize),
		tools:   make(map[string]*toolAccumulator),
	}
}
