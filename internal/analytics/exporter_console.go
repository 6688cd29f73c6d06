package analytics

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ConsoleExporter writes one line per event to an io.Writer (os.Stdout by
// default), grounded on the CLI's plain table/line output idiom elsewhere in
// this codebase rather than a heavier structured-log dependency: this is a
// human-facing debug sink, not a production pipeline.
type ConsoleExporter struct {
	Out io.Writer
}

// NewConsoleExporter builds a ConsoleExporter writing to os.Stdout.
func NewConsoleExporter() *ConsoleExporter {
	return &ConsoleExporter{Out: os.Stdout}
}

// Export implements Exporter.
func (c *ConsoleExporter) Export(ctx context.Context, batch []ToolCallEvent) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	for _, e := range batch {
		status := "ok"
		if !e.Success {
			status = "error"
		}
		if _, err := fmt.Fprintf(out, "[analytics] tool=%s session=%s status=%s duration_ms=%.2f in=%d out=%d\n",
			e.ToolName, e.SessionID, status, e.DurationMs, e.InputSize, e.OutputSize); err != nil {
			return err
		}
	}
	return nil
}
