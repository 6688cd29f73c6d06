package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evt(tool, session string, durationMs float64, success bool) ToolCallEvent {
	return ToolCallEvent{
		ToolName:   tool,
		SessionID:  session,
		Timestamp:  time.Now(),
		DurationMs: durationMs,
		Success:    success,
	}
}

func TestCollector_RecordAndSnapshot(t *testing.T) {
	c := New(Config{})
	c.Record(evt("search", "s1", 10, true))
	c.Record(evt("search", "s1", 20, true))
	c.Record(evt("search", "s2", 30, false))

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.TotalCalls)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.InDelta(t, 1.0/3.0, snap.ErrorRate, 0.0001)

	toolStats, ok := snap.Tools["search"]
	require.True(t, ok)
	assert.Equal(t, int64(3), toolStats.Count)
	assert.Equal(t, int64(1), toolStats.ErrorCount)

	s1, ok := snap.Sessions["s1"]
	require.True(t, ok)
	assert.Equal(t, int64(2), s1.Count)
	s1Tool, ok := s1.Tools["search"]
	require.True(t, ok)
	assert.Equal(t, int64(2), s1Tool.Count)
}

func TestCollector_PercentileWindowBounded(t *testing.T) {
	c := New(Config{ToolWindowSize: 3})
	for _, d := range []float64{10, 20, 30, 40, 50} {
		c.Record(evt("t", "", d, true))
	}
	stats := c.Snapshot().Tools["t"]
	assert.Equal(t, int64(5), stats.Count)
	assert.Equal(t, 40.0, stats.P50Ms)
}

func TestCollector_GetTopSessions(t *testing.T) {
	c := New(Config{})
	for i := 0; i < 3; i++ {
		c.Record(evt("t", "busy", 1, true))
	}
	c.Record(evt("t", "quiet", 1, true))

	top := c.GetTopSessions(1)
	require.Len(t, top, 1)
	assert.Equal(t, "busy", top[0].SessionID)
	assert.Equal(t, int64(3), top[0].Stats.Count)

	all := c.GetTopSessions(-1)
	assert.Len(t, all, 2)
}

type recordingExporter struct {
	mu      sync.Mutex
	batches [][]ToolCallEvent
	failN   int
}

func (r *recordingExporter) Export(ctx context.Context, batch []ToolCallEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failN > 0 {
		r.failN--
		return errors.New("export failed")
	}
	cp := append([]ToolCallEvent{}, batch...)
	r.batches = append(r.batches, cp)
	return nil
}

func TestCollector_FlushDeliversPendingBatch(t *testing.T) {
	exp := &recordingExporter{}
	c := New(Config{Exporter: exp})
	c.Record(evt("t", "s", 5, true))
	c.Record(evt("t", "s", 6, true))

	require.NoError(t, c.Flush(context.Background()))

	exp.mu.Lock()
	defer exp.mu.Unlock()
	require.Len(t, exp.batches, 1)
	assert.Len(t, exp.batches[0], 2)
}

func TestCollector_FlushRequeuesOnExportFailure(t *testing.T) {
	exp := &recordingExporter{failN: 1}
	c := New(Config{Exporter: exp})
	c.Record(evt("t", "s", 5, true))

	err := c.Flush(context.Background())
	assert.Error(t, err)

	require.NoError(t, c.Flush(context.Background()))
	exp.mu.Lock()
	defer exp.mu.Unlock()
	require.Len(t, exp.batches, 1)
	assert.Len(t, exp.batches[0], 1)
}

func TestCollector_FlushNoExporterIsNoop(t *testing.T) {
	c := New(Config{})
	c.Record(evt("t", "s", 5, true))
	assert.NoError(t, c.Flush(context.Background()))
}

func TestCollector_Reset(t *testing.T) {
	c := New(Config{})
	c.Record(evt("t", "s", 5, true))
	c.Reset()

	snap := c.Snapshot()
	assert.Equal(t, int64(0), snap.TotalCalls)
	assert.Empty(t, snap.Tools)
	assert.Empty(t, snap.Sessions)
}

func TestCollector_DestroyFlushesOnce(t *testing.T) {
	exp := &recordingExporter{}
	c := New(Config{Exporter: exp, FlushInterval: time.Hour})
	c.Record(evt("t", "s", 5, true))

	c.Destroy(context.Background())

	exp.mu.Lock()
	defer exp.mu.Unlock()
	require.Len(t, exp.batches, 1)
}
