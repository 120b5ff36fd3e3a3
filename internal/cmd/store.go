package cmd

import (
	"context"

	"github.com/banzuke/banzuke/internal/config"
	"github.com/banzuke/banzuke/internal/core/store"
	errwrap "github.com/banzuke/banzuke/internal/errors"
)

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, errwrap.WrapDatabaseError(ctx, err, "open response cache store")
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errwrap.WrapDatabaseError(ctx, err, "migrate response cache store")
	}

	return db, nil
}
