package middleware

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-gateway/internal/globmatch"
	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

// Filter denies or allows tool calls by glob pattern. A tool is denied if
// any Deny pattern matches its name; otherwise, when Allow is non-empty, the
// name must match at least one Allow pattern.
type Filter struct {
	Allow []string
	Deny  []string
}

// NewFilter returns the middleware for the given allow/deny patterns. The
// patterns are stored as given and compiled on each call via
// globmatch.MatchAny.
func NewFilter(allow, deny []string) *Filter {
	return &Filter{Allow: allow, Deny: deny}
}

// Handle implements Middleware.
func (f *Filter) Handle(ctx context.Context, mwctx *Context, next NextFunc) (*mcp.CallToolResult, error) {
	denied := globmatch.MatchAny(f.Deny, mwctx.ToolName) ||
		(len(f.Allow) > 0 && !globmatch.MatchAny(f.Allow, mwctx.ToolName))
	if denied {
		logging.Audit(logging.AuditEvent{Action: "filter_denied", Outcome: "failure", Target: mwctx.ToolName})
		return ErrorResult(fmt.Sprintf("Tool %q is denied by filter policy", mwctx.ToolName)), nil
	}
	return next(ctx, mwctx)
}
