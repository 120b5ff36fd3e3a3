// Package store persists cached Sumo API responses in libsql, either a local
// file, an in-memory database or a remote Turso endpoint.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/banzuke/banzuke/internal/config"
)

const (
	driverLibsql = "libsql"
	memoryPath   = ":memory:"

	localBusyTimeoutMS = 5000
)

var errNotInitialized = errors.New("store is not initialized")

// Store wraps the database connection backing the response cache.
type Store struct {
	DB *sql.DB
	// Clock overrides time.Now for expiry bookkeeping.
	Clock func() time.Time

	driver string
	target target
}

// target is a resolved connection string plus what kind of database it is.
type target struct {
	dsn   string
	local bool // a file on this host
	dir   string
}

// Open connects to the configured database and tunes local files for a
// single writer.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}
	if driver != driverLibsql {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	tgt, err := resolveTarget(cfg)
	if err != nil {
		return nil, err
	}
	if tgt.dir != "" {
		// #nosec G301 -- data directories use 0755 for multi-user access compatibility
		if err := os.MkdirAll(tgt.dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open(driverLibsql, tgt.dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}
	s := &Store{DB: db, driver: driver, target: tgt}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping libsql store: %w", err)
	}
	if tgt.local {
		if err := s.tuneLocal(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver returns the configured store driver.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// Remote reports whether the store talks to a libsql server.
func (s *Store) Remote() bool {
	return s != nil && s.DB != nil && !s.target.local && s.target.dsn != memoryPath
}

// resolveTarget turns the store settings into a DSN. A URL wins over a
// path; bare paths become file: DSNs whose directory Open creates.
func resolveTarget(cfg config.StoreConfig) (target, error) {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		dsn, err := withAuthToken(raw, cfg.AuthToken)
		if err != nil {
			return target{}, err
		}
		return target{dsn: dsn}, nil
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return target{}, errors.New("store path or url is required")
	case path == memoryPath:
		return target{dsn: memoryPath}, nil
	case strings.HasPrefix(path, "libsql:"):
		return target{dsn: path}, nil
	case strings.HasPrefix(path, "file:"):
		local, err := filePath(path)
		if err != nil {
			return target{}, err
		}
		return target{dsn: path, local: true, dir: parentDir(local)}, nil
	default:
		clean := filepath.Clean(path)
		return target{dsn: "file:" + clean, local: true, dir: parentDir(clean)}, nil
	}
}

func (s *Store) tuneLocal(ctx context.Context) error {
	s.DB.SetMaxOpenConns(1)

	var journalMode string
	if err := s.DB.QueryRowContext(ctx, "PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		return fmt.Errorf("configure journal mode: %w", err)
	}
	var busyTimeout int
	if err := s.DB.QueryRowContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", localBusyTimeoutMS)).Scan(&busyTimeout); err != nil {
		return fmt.Errorf("configure busy timeout: %w", err)
	}
	return nil
}

// withAuthToken adds authToken to a remote DSN unless it already has one.
func withAuthToken(dsn string, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return dsn, nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	query := parsed.Query()
	if query.Get("authToken") != "" {
		return dsn, nil
	}
	query.Set("authToken", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func filePath(dsn string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store path: %w", err)
	}
	path := parsed.Path
	if path == "" {
		path = parsed.Opaque
	}
	return strings.TrimPrefix(path, "//"), nil
}

// parentDir returns the directory to create for path, or "" when there is
// nothing to create.
func parentDir(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return ""
	}
	return dir
}
