package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GetCachedResponse returns a cached response body if it is still valid.
// A miss returns (nil, nil).
func (s *Store) GetCachedResponse(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.DB == nil {
		return nil, errNotInitialized
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("cache key is required")
	}

	var body []byte
	row := s.DB.QueryRowContext(ctx, `
		SELECT body
		FROM response_cache
		WHERE cache_key = ? AND expires_at > ?
	`, key, s.now().Unix())

	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached response: %w", err)
	}

	if _, err := s.DB.ExecContext(ctx, `UPDATE response_cache SET hits = hits + 1 WHERE cache_key = ?`, key); err != nil {
		return nil, fmt.Errorf("count cache hit: %w", err)
	}

	return body, nil
}

// SetCachedResponse stores a response body with a TTL. A non-positive TTL or
// empty body is a no-op.
func (s *Store) SetCachedResponse(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 || len(body) == 0 {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}

	now := s.now()
	expires := now.Add(ttl)

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO response_cache (cache_key, body, stored_at, expires_at, hits)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(cache_key) DO UPDATE SET
			body = excluded.body,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at,
			hits = 0
	`, key, body, now.Unix(), expires.Unix())
	if err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}

	return nil
}

func (s *Store) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
