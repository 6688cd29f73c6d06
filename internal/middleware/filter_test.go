package middleware

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Deny(t *testing.T) {
	f := NewFilter(nil, []string{"danger*"})
	mwctx := &Context{ToolName: "danger_rm"}

	result, err := f.Handle(context.Background(), mwctx, func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		t.Fatal("next should not be called")
		return nil, nil
	})

	require.NoError(t, err)
	require.True(t, result.IsError)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Equal(t, `Tool "danger_rm" is denied by filter policy`, text.Text)
}

func TestFilter_AllowMustMatch(t *testing.T) {
	f := NewFilter([]string{"safe_*"}, nil)

	_, err := f.Handle(context.Background(), &Context{ToolName: "safe_read"}, func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		return textResult("ok"), nil
	})
	require.NoError(t, err)

	result, err := f.Handle(context.Background(), &Context{ToolName: "other"}, func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		t.Fatal("next should not be called")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestFilter_NoRulesAllowsEverything(t *testing.T) {
	f := NewFilter(nil, nil)
	called := false
	_, err := f.Handle(context.Background(), &Context{ToolName: "anything"}, func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		called = true
		return textResult("ok"), nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
