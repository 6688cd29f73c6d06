// Package middleware implements the onion-style middleware chain that sits
// between the gateway's router and its backend dispatch, plus the three
// built-in policy middlewares (filter, cache, transform).
package middleware

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Context is the mutable call context threaded through the chain and into
// the final handler. Every middleware and the final handler observe the same
// object; transform middleware mutates Arguments in place so downstream
// stages see the update.
type Context struct {
	ToolName  string
	Arguments map[string]interface{}
	Server    string
}

// NextFunc re-enters the chain at the following stage (or the final
// handler, once the chain is exhausted).
type NextFunc func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error)

// Middleware wraps a call with pre/post logic. Implementations may return
// without invoking next to short-circuit the chain.
type Middleware interface {
	Handle(ctx context.Context, mwctx *Context, next NextFunc) (*mcp.CallToolResult, error)
}

// Func adapts a plain function to the Middleware interface.
type Func func(ctx context.Context, mwctx *Context, next NextFunc) (*mcp.CallToolResult, error)

// Handle implements Middleware.
func (f Func) Handle(ctx context.Context, mwctx *Context, next NextFunc) (*mcp.CallToolResult, error) {
	return f(ctx, mwctx, next)
}

// Execute runs chain in index order against mwctx, invoking final once the
// chain is exhausted. The chain is walked recursively with an index cursor
// rather than built into a closure up front, so a middleware that
// short-circuits never pays for constructing stages after it.
//
// Ordering guarantee: for chain [A, B] and handler H, the observable order
// is A.pre, B.pre, H, B.post, A.post.
func Execute(ctx context.Context, chain []Middleware, mwctx *Context, final NextFunc) (*mcp.CallToolResult, error) {
	var run func(i int) (*mcp.CallToolResult, error)
	run = func(i int) (*mcp.CallToolResult, error) {
		if i >= len(chain) {
			return final(ctx, mwctx)
		}
		next := func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
			return run(i + 1)
		}
		return chain[i].Handle(ctx, mwctx, next)
	}
	return run(0)
}

// ErrorResult builds a synthesized MCP error result carrying a single text
// content block, the shape every gateway-level failure (route not found,
// backend not found, filter denial, backend error) surfaces as.
func ErrorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
		IsError: true,
	}
}
