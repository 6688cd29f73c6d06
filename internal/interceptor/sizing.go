package interceptor

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// EncodedSize returns the JSON-encoded byte length of v, or 0 if it cannot
// be encoded. Used to compute ToolCallEvent.InputSize/OutputSize from the
// payload as it would appear on the wire.
func EncodedSize(v interface{}) int {
	if v == nil {
		return 0
	}
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}

func resultSize(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	return EncodedSize(result)
}
