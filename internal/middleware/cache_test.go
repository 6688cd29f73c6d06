package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_PermutedArgsMatch(t *testing.T) {
	k1, err := CacheKey("t", map[string]interface{}{"x": 1, "y": 2})
	require.NoError(t, err)
	k2, err := CacheKey("t", map[string]interface{}{"y": 2, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestCache_HitsAcrossPermutedArguments(t *testing.T) {
	calls := 0
	backend := func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		calls++
		return textResult("result"), nil
	}

	cache := NewCache(60*time.Second, 0, nil)
	mwctx := &Context{ToolName: "t", Arguments: map[string]interface{}{"x": 1, "y": 2}}

	_, err := cache.Handle(context.Background(), mwctx, backend)
	require.NoError(t, err)

	mwctx2 := &Context{ToolName: "t", Arguments: map[string]interface{}{"y": 2, "x": 1}}
	_, err = cache.Handle(context.Background(), mwctx2, backend)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestCache_BypassOnErrorResult(t *testing.T) {
	calls := 0
	backend := func(ctx context.Context, mwctx *Context) (*mcp.CallToolResult, error) {
		calls++
		return ErrorResult("nope"), nil
	}

	cache := NewCache(60*time.Second, 0, nil)
	mwctx := &Context{ToolName: "t", Arguments: map[string]interface{}{"x": 1}}

	_, _ = cache.Handle(context.Background(), mwctx, backend)
	_, _ = cache.Handle(context.Background(), mwctx, backend)

	assert.Equal(t, 2, calls)
}
