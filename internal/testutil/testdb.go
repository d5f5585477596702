package testutil

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"focusjournal/backend/internal/db"
	"focusjournal/backend/internal/model"
	"focusjournal/backend/internal/repository"
	"focusjournal/backend/internal/timer"
)

// NewTestDB opens a SQLite file in a temp dir with all migrations applied.
// The database is closed when the test completes.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	if err := db.RunMigrations(database, MigrationsDir()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

// MigrationsDir is the repository's migrations directory.
func MigrationsDir() string {
	_, currentFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
}

// CreateUser inserts a user with an idle timer and default settings.
func CreateUser(t *testing.T, database *sqlx.DB, name string) *model.User {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		PasswordHash: "not-a-real-hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	users := repository.NewUserRepository(database)
	timers := repository.NewTimerRepository(database)
	tx, err := users.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	if err := users.CreateTx(ctx, tx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := timers.CreateInitialStateTx(ctx, tx, user.ID, timer.DefaultSettings()); err != nil {
		t.Fatalf("create timer state: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return user
}
