package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CacheEntry describes one cached response without its body.
type CacheEntry struct {
	Key       string    `json:"key" yaml:"key"`
	Size      int       `json:"size" yaml:"size"`
	Hits      int       `json:"hits" yaml:"hits"`
	StoredAt  time.Time `json:"stored_at" yaml:"stored_at"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
	Expired   bool      `json:"expired" yaml:"expired"`
}

// CacheQuery selects cached responses. Exactly one of All, Key or Prefix is
// required; ExpiredOnly narrows any of them.
type CacheQuery struct {
	All         bool
	Key         string
	Prefix      string
	ExpiredOnly bool
}

func (q CacheQuery) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(q.Key) != "" {
		return nil
	}
	if strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --key, or --prefix")
}

func (q CacheQuery) whereClause(now time.Time) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var (
		clauses []string
		args    []any
	)
	switch {
	case q.All:
	case strings.TrimSpace(q.Key) != "":
		clauses = append(clauses, "cache_key = ?")
		args = append(args, strings.TrimSpace(q.Key))
	default:
		clauses = append(clauses, "cache_key LIKE ?")
		args = append(args, strings.TrimSpace(q.Prefix)+"%")
	}
	if q.ExpiredOnly {
		clauses = append(clauses, "expires_at <= ?")
		args = append(args, now.Unix())
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

// ListResponses returns metadata for the cached responses matching q.
func (s *Store) ListResponses(ctx context.Context, q CacheQuery) ([]CacheEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := s.now()
	where, args, err := q.whereClause(now)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT cache_key, length(body), hits, stored_at, expires_at
		FROM response_cache
		%s
		ORDER BY cache_key
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list cached responses: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []CacheEntry{}
	for rows.Next() {
		var (
			key      string
			size     int
			hits     int
			storedAt int64
			expires  int64
		)
		if err := rows.Scan(&key, &size, &hits, &storedAt, &expires); err != nil {
			return nil, fmt.Errorf("scan cached responses: %w", err)
		}

		expiresAt := time.Unix(expires, 0).UTC()
		entries = append(entries, CacheEntry{
			Key:       key,
			Size:      size,
			Hits:      hits,
			StoredAt:  time.Unix(storedAt, 0).UTC(),
			ExpiresAt: expiresAt,
			Expired:   !expiresAt.After(now),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cached responses: %w", err)
	}

	return entries, nil
}

// CountResponses counts the cached responses matching q.
func (s *Store) CountResponses(ctx context.Context, q CacheQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause(s.now())
	if err != nil {
		return 0, err
	}

	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM response_cache
		%s
	`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count cached responses: %w", err)
	}
	return count, nil
}

// PurgeResponses deletes the cached responses matching q and reports how many
// were removed.
func (s *Store) PurgeResponses(ctx context.Context, q CacheQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause(s.now())
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM response_cache
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("purge cached responses: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge cached responses: %w", err)
	}
	return affected, nil
}
