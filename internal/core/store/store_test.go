package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banzuke/banzuke/internal/config"
)

func TestResolveTarget(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name  string
		cfg   config.StoreConfig
		want  target
		isErr bool
	}{
		{
			name: "RemoteURLGetsToken",
			cfg:  config.StoreConfig{URL: "libsql://sumo.turso.io", AuthToken: "token123"},
			want: target{dsn: "libsql://sumo.turso.io?authToken=token123"},
		},
		{
			name: "RemoteURLKeepsExistingToken",
			cfg:  config.StoreConfig{URL: "libsql://sumo.turso.io?authToken=mine", AuthToken: "token123"},
			want: target{dsn: "libsql://sumo.turso.io?authToken=mine"},
		},
		{
			name: "URLBeatsPath",
			cfg:  config.StoreConfig{URL: "libsql://sumo.turso.io", Path: "/ignored.db"},
			want: target{dsn: "libsql://sumo.turso.io"},
		},
		{
			name: "Memory",
			cfg:  config.StoreConfig{Path: ":memory:"},
			want: target{dsn: ":memory:"},
		},
		{
			name: "FileDSN",
			cfg:  config.StoreConfig{Path: "file:" + filepath.Join(dir, "cache", "banzuke.db")},
			want: target{dsn: "file:" + filepath.Join(dir, "cache", "banzuke.db"), local: true, dir: filepath.Join(dir, "cache")},
		},
		{
			name: "BarePath",
			cfg:  config.StoreConfig{Path: filepath.Join(dir, "nested", "..", "banzuke.db")},
			want: target{dsn: "file:" + filepath.Join(dir, "banzuke.db"), local: true, dir: dir},
		},
		{
			name: "RelativeFileHasNoDir",
			cfg:  config.StoreConfig{Path: "banzuke.db"},
			want: target{dsn: "file:banzuke.db", local: true},
		},
		{
			name:  "Missing",
			cfg:   config.StoreConfig{},
			isErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveTarget(tc.cfg)
			if tc.isErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres", Path: ":memory:"})
	require.ErrorContains(t, err, "unsupported store driver")
}

func TestCacheQueryWhereClause(t *testing.T) {
	now := time.Unix(1_800_000_000, 0).UTC()

	t.Run("RequiresSelector", func(t *testing.T) {
		_, _, err := CacheQuery{}.whereClause(now)
		require.Error(t, err)

		_, _, err = CacheQuery{ExpiredOnly: true}.whereClause(now)
		require.Error(t, err)
	})

	t.Run("All", func(t *testing.T) {
		where, args, err := CacheQuery{All: true}.whereClause(now)
		require.NoError(t, err)
		require.Empty(t, where)
		require.Empty(t, args)
	})

	t.Run("AllExpired", func(t *testing.T) {
		where, args, err := CacheQuery{All: true, ExpiredOnly: true}.whereClause(now)
		require.NoError(t, err)
		require.Equal(t, "WHERE expires_at <= ?", where)
		require.Equal(t, []any{now.Unix()}, args)
	})

	t.Run("Key", func(t *testing.T) {
		where, args, err := CacheQuery{Key: " GET /rikishis "}.whereClause(now)
		require.NoError(t, err)
		require.Equal(t, "WHERE cache_key = ?", where)
		require.Equal(t, []any{"GET /rikishis"}, args)
	})

	t.Run("PrefixExpired", func(t *testing.T) {
		where, args, err := CacheQuery{Prefix: "GET /basho/", ExpiredOnly: true}.whereClause(now)
		require.NoError(t, err)
		require.Equal(t, "WHERE cache_key LIKE ? AND expires_at <= ?", where)
		require.Equal(t, []any{"GET /basho/%", now.Unix()}, args)
	})
}

func TestNilStore(t *testing.T) {
	var s *Store
	_, err := s.GetCachedResponse(context.Background(), "GET /rikishis")
	require.Error(t, err)
	require.Error(t, s.SetCachedResponse(context.Background(), "GET /rikishis", []byte("{}"), time.Minute))
	require.Error(t, s.Migrate(context.Background()))
	require.NoError(t, s.Close())
	require.Empty(t, s.Driver())
	require.False(t, s.Remote())

	_, err = s.SchemaVersion(context.Background())
	require.ErrorIs(t, err, errNotInitialized)
}
