package middleware

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// BeforeFunc runs before next and returns arguments to merge into the call
// context in place. A nil return leaves Arguments unchanged.
type BeforeFunc func(ctx context.Context, mwctx *Context) map[string]interface{}

// AfterFunc runs after next returns and may rewrite the result before it
// continues up the chain.
type AfterFunc func(result *mcp.CallToolResult) *mcp.CallToolResult

// Transform mutates the call context before dispatch and/or the result
// after. Either hook may be nil.
type Transform struct {
	Before BeforeFunc
	After  AfterFunc
}

// NewTransform builds a Transform middleware from optional hooks.
func NewTransform(before BeforeFunc, after AfterFunc) *Transform {
	return &Transform{Before: before, After: after}
}

// Handle implements Middleware.
func (t *Transform) Handle(ctx context.Context, mwctx *Context, next NextFunc) (*mcp.CallToolResult, error) {
	if t.Before != nil {
		if patch := t.Before(ctx, mwctx); patch != nil {
			if mwctx.Arguments == nil {
				mwctx.Arguments = make(map[string]interface{}, len(patch))
			}
			for k, v := range patch {
				mwctx.Arguments[k] = v
			}
		}
	}

	result, err := next(ctx, mwctx)
	if err != nil {
		return result, err
	}

	if t.After != nil {
		result = t.After(result)
	}
	return result, nil
}
