// Package testutil provides shared fixtures for basket tests: product
// snapshots, run reports and a migrated in-memory history database.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
	"github.com/Veraticus/the-basket-must-flow/internal/storage"
)

// TestDB represents a test database with the runs it was seeded with.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	Runs    []*model.RunReport
}

// SetupTestDB creates a new in-memory history database seeded with runs.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.RunReport("run-a", at, model.StatusSuccess),
//	)
func SetupTestDB(t *testing.T, runs ...*model.RunReport) *TestDB {
	t.Helper()

	// Create in-memory SQLite storage
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, run := range runs {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("failed to seed run %q: %v", run.RunID, err)
		}
	}

	// Register cleanup
	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		Runs:    runs,
		t:       t,
	}
}

// MustGetRun fetches a run or fails the test.
func (db *TestDB) MustGetRun(id string) *model.RunReport {
	db.t.Helper()
	run, err := db.Storage.GetRun(context.Background(), id)
	if err != nil {
		db.t.Fatalf("run %q not found: %v", id, err)
	}
	return run
}
