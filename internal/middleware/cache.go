package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-gateway/internal/cachestore"
)

// Cache memoizes tool call results keyed on a stable canonical encoding of
// (tool, args). It never calls next on a hit, and never caches a result that
// came back with IsError=true.
type Cache struct {
	TTL   time.Duration
	Store cachestore.Store
}

// NewCache builds a Cache middleware. If store is nil, a default in-memory
// MemoryStore bounded to maxSize is used (maxSize<=0 falls back to
// cachestore.DefaultMaxSize).
func NewCache(ttl time.Duration, maxSize int, store cachestore.Store) *Cache {
	if store == nil {
		store = cachestore.NewMemoryStore(maxSize)
	}
	return &Cache{TTL: ttl, Store: store}
}

// Handle implements Middleware.
func (c *Cache) Handle(ctx context.Context, mwctx *Context, next NextFunc) (*mcp.CallToolResult, error) {
	key, err := CacheKey(mwctx.ToolName, mwctx.Arguments)
	if err != nil {
		return nil, fmt.Errorf("cache: build key: %w", err)
	}

	if cached, ok, err := c.Store.Get(ctx, key); err != nil {
		return nil, fmt.Errorf("cache: get: %w", err)
	} else if ok {
		result, ok := cached.(*mcp.CallToolResult)
		if ok {
			return result, nil
		}
	}

	result, err := next(ctx, mwctx)
	if err != nil {
		return result, err
	}
	if result != nil && !result.IsError {
		if err := c.Store.Set(ctx, key, result, c.TTL); err != nil {
			return nil, fmt.Errorf("cache: set: %w", err)
		}
	}
	return result, nil
}

// CacheKey builds a stable, content-addressed cache key for a (tool, args)
// pair: object keys are sorted ascending by Unicode code point, arrays keep
// their order, scalars are unchanged, so any two key-permuted copies of the
// same arguments produce byte-identical keys.
func CacheKey(tool string, args map[string]interface{}) (string, error) {
	canon, err := canonicalize(args)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	return tool + ":" + string(encoded), nil
}

// canonicalValue carries an object's keys in explicitly sorted order so
// encoding/json (which would otherwise re-sort map[string]any keys the same
// way anyway) is not relied on implicitly, and so nested maps canonicalize
// recursively.
type canonicalValue struct {
	keys   []string
	values map[string]interface{}
}

// MarshalJSON writes the object with keys in sorted order.
func (c canonicalValue) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range c.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(c.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func canonicalize(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make(map[string]interface{}, len(val))
		for _, k := range keys {
			c, err := canonicalize(val[k])
			if err != nil {
				return nil, err
			}
			values[k] = c
		}
		return canonicalValue{keys: keys, values: values}, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			c, err := canonicalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return val, nil
	}
}
