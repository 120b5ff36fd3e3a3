package sumoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultCacheTTL applies when a cache is configured without a TTL.
const DefaultCacheTTL = 5 * time.Minute

// ResponseCache stores successful response bodies. A miss is (nil, nil).
type ResponseCache interface {
	GetCachedResponse(ctx context.Context, key string) ([]byte, error)
	SetCachedResponse(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// getJSON serves path from the cache when possible, otherwise calls upstream
// through Do and decodes the body into out. Only successful bodies are cached.
func (c *Client) getJSON(ctx context.Context, route string, path string, out any) error {
	key := http.MethodGet + " " + path

	if body := c.cachedBody(ctx, key); body != nil {
		if err := json.Unmarshal(body, out); err == nil {
			return nil
		}
	}

	resp, err := c.Do(ctx, Call{Method: http.MethodGet, Path: path, Route: route})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	c.storeBody(ctx, key, resp.Body)
	return nil
}

func (c *Client) cachedBody(ctx context.Context, key string) []byte {
	if c == nil || c.Cache == nil {
		return nil
	}
	body, err := c.Cache.GetCachedResponse(ctx, key)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("Response cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	if body != nil && c.Logger != nil {
		c.Logger.Debug("Serving cached response", zap.String("key", key))
	}
	return body
}

func (c *Client) storeBody(ctx context.Context, key string, body []byte) {
	if c == nil || c.Cache == nil {
		return
	}
	ttl := c.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := c.Cache.SetCachedResponse(ctx, key, body, ttl); err != nil && c.Logger != nil {
		c.Logger.Warn("Response cache write failed", zap.String("key", key), zap.Error(err))
	}
}
