package cmd

import (
	"context"
	"fmt"

	"github.com/banzuke/banzuke/internal/config"
	"github.com/banzuke/banzuke/internal/core/store"
	"github.com/banzuke/banzuke/internal/core/sumoapi"
	errwrap "github.com/banzuke/banzuke/internal/errors"
	"github.com/banzuke/banzuke/internal/metrics"
	"github.com/banzuke/banzuke/internal/observability"
)

// apiSession is a governed client plus the cache store it reads through,
// when caching is enabled.
type apiSession struct {
	client *sumoapi.Client
	store  *store.Store
}

func (s *apiSession) Close() {
	if s != nil && s.store != nil {
		_ = s.store.Close()
	}
}

// newAPISession builds the one client (and therefore the one limiter) a
// process uses for upstream calls.
func newAPISession(ctx context.Context, cfg *config.Config) (*apiSession, error) {
	opts := sumoapi.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.RateLimit.Limiter(),
		MaxWaits:  cfg.RateLimit.MaxRechecks,
		Recorder:  metrics.Upstream{},
		UserAgent: userAgent(cfg),
	}
	if logger := observability.Current(); logger != nil {
		opts.Logger = logger
	}

	session := &apiSession{}
	if cfg.Cache.Enabled {
		db, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		session.store = db
		opts.Cache = db
		opts.CacheTTL = cfg.Cache.TTL
	}

	client, err := sumoapi.NewClient(opts)
	if err != nil {
		session.Close()
		return nil, errwrap.WrapConfigInvalid(ctx, err, "invalid rate limit configuration")
	}
	session.client = client
	return session, nil
}

func userAgent(cfg *config.Config) string {
	if cfg.API.UserAgent != "" {
		return cfg.API.UserAgent
	}
	version := versionInfo.Version
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("%s/%s", config.AppName, version)
}
