package middleware

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_BeforeMergesArguments(t *testing.T) {
	tr := NewTransform(
		func(ctx context.Context, mwctx *Context) map[string]interface{} {
			return map[string]interface{}{"injected": true}
		},
		nil,
	)

	var seen map[string]interface{}
	_, err := tr.Handle(context.Background(), &Context{Arguments: map[string]interface{}{"x": 1}}, func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		seen = mwctx.Arguments
		return textResult("ok"), nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, seen["x"])
	assert.Equal(t, true, seen["injected"])
}

func TestTransform_AfterRewritesResult(t *testing.T) {
	tr := NewTransform(nil, func(result *mcp.CallToolResult) *mcp.CallToolResult {
		return textResult("rewritten")
	})

	result, err := tr.Handle(context.Background(), &Context{}, func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		return textResult("original"), nil
	})

	require.NoError(t, err)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Equal(t, "rewritten", text.Text)
}

func TestTransform_NilHooksPassThrough(t *testing.T) {
	tr := NewTransform(nil, nil)
	called := false
	_, err := tr.Handle(context.Background(), &Context{}, func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		called = true
		return textResult("ok"), nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
