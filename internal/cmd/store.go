package cmd

import (
	"context"

	"github.com/kundliinsight/kundli/internal/config"
	"github.com/kundliinsight/kundli/internal/core/store"
	apperrors "github.com/kundliinsight/kundli/internal/errors"
)

// openStore returns a migrated store. A nil cfg loads the layered config.
// Every subcommand that touches content, sessions or settings goes through here.
func openStore(ctx context.Context, cfg *config.Config) (db *store.Store, err error) {
	if cfg == nil {
		if cfg, err = loadConfig(ctx); err != nil {
			return nil, apperrors.WrapConfigInvalid(ctx, err, "load config")
		}
	}

	if db, err = store.Open(ctx, cfg.Store); err != nil {
		return nil, err
	}
	if err = db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
