package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// jsonlEvent is the wire shape one ToolCallEvent is marshaled to per line.
type jsonlEvent struct {
	Tool       string            `json:"tool"`
	SessionID  string            `json:"sessionId,omitempty"`
	Timestamp  int64             `json:"timestampMs"`
	DurationMs float64           `json:"durationMs"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	ErrorCode  int               `json:"errorCode,omitempty"`
	InputSize  int               `json:"inputSize"`
	OutputSize int               `json:"outputSize"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// JSONLinesExporter appends one JSON object per event, newline-delimited,
// to a file. Safe for concurrent Export calls (the collector's single-flight
// guarantees only one is ever in flight, but the mutex costs nothing and
// protects callers that bypass the collector directly in tests).
type JSONLinesExporter struct {
	mu   sync.Mutex
	path string
}

// NewJSONLinesExporter builds a JSONLinesExporter appending to path.
func NewJSONLinesExporter(path string) *JSONLinesExporter {
	return &JSONLinesExporter{path: path}
}

// Export implements Exporter.
func (j *JSONLinesExporter) Export(ctx context.Context, batch []ToolCallEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("jsonl exporter: open %s: %w", j.path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, e := range batch {
		line := jsonlEvent{
			Tool:       e.ToolName,
			SessionID:  e.SessionID,
			Timestamp:  e.Timestamp.UnixMilli(),
			DurationMs: e.DurationMs,
			Success:    e.Success,
			Error:      e.ErrorMessage,
			ErrorCode:  e.ErrorCode,
			InputSize:  e.InputSize,
			OutputSize: e.OutputSize,
			Metadata:   e.Metadata,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("jsonl exporter: encode: %w", err)
		}
	}
	return nil
}
