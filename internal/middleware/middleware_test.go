package middleware

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}
}

func TestExecute_Ordering(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return Func(func(ctx context.Context, mwctx *Context, next NextFunc) (*mcp.CallToolResult, error) {
			order = append(order, name+".pre")
			res, err := next(ctx, mwctx)
			order = append(order, name+".post")
			return res, err
		})
	}

	final := func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		order = append(order, "H")
		return textResult("ok"), nil
	}

	_, err := Execute(context.Background(), []Middleware{mk("A"), mk("B")}, &Context{}, final)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.pre", "B.pre", "H", "B.post", "A.post"}, order)
}

func TestExecute_ShortCircuit(t *testing.T) {
	finalCalled := false
	final := func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		finalCalled = true
		return textResult("ok"), nil
	}

	denying := Func(func(ctx context.Context, mwctx *Context, next NextFunc) (*mcp.CallToolResult, error) {
		return ErrorResult("denied"), nil
	})

	result, err := Execute(context.Background(), []Middleware{denying}, &Context{}, final)
	require.NoError(t, err)
	assert.False(t, finalCalled)
	assert.True(t, result.IsError)
}

func TestExecute_EmptyChain(t *testing.T) {
	final := func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		return textResult("ok"), nil
	}
	result, err := Execute(context.Background(), nil, &Context{}, final)
	require.NoError(t, err)
	assert.False(t, result.IsError)
}
