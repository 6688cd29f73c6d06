// Package aggregator implements the gateway core: it owns the backend
// clients, the router, the middleware chain, and the merged tool index, and
// orchestrates tool dispatch end to end.
package aggregator

import "github.com/giantswarm/mcp-gateway/internal/backend"

// AggregateTools merges per-backend tool lists into a single deduplicated
// list: for each backend in iteration order, tools whose name has not
// been seen are appended and the name marked seen. Because Go map iteration
// order is randomized, callers that care about deterministic tie-breaking
// must pass an explicit backend order rather than ranging a map directly;
// Gateway.RefreshToolIndex does so using the gateway's configured backend
// order.
func AggregateTools(order []string, perBackend map[string][]backend.ToolInfo) []backend.ToolInfo {
	seen := make(map[string]struct{})
	var out []backend.ToolInfo
	for _, name := range order {
		for _, tool := range perBackend[name] {
			if _, dup := seen[tool.Name]; dup {
				continue
			}
			seen[tool.Name] = struct{}{}
			out = append(out, tool)
		}
	}
	return out
}
