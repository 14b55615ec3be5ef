package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/the-basket-must-flow/internal/common"
	"github.com/Veraticus/the-basket-must-flow/internal/config"
	"github.com/Veraticus/the-basket-must-flow/internal/storage"
)

// initStorage opens the run history database and brings its schema up to date.
func initStorage(ctx context.Context, settings config.Settings) (*storage.SQLiteStorage, error) {
	if !settings.Database.Enabled {
		return nil, common.NewUserError("run history is disabled (database.enabled=false)", nil)
	}

	store, err := storage.NewSQLiteStorage(settings.DatabasePath())
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}
