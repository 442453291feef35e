package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nerrad567/todo-core/internal/infrastructure/database"
	_ "github.com/nerrad567/todo-core/migrations" // registers embedded schema
)

// testSecret meets the 32-character minimum enforced by config.
const testSecret = "test-secret-key-for-jwt-signing-32+"

// testDB opens a temp-file SQLite database with the real schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

// fastHasher keeps tests quick; production uses cost 10.
var fastHasher = NewHasher(4)

// seedTestUser inserts a user with password "password123".
func seedTestUser(t *testing.T, db *sql.DB, username, email string) *User {
	t.Helper()

	hash, err := fastHasher.Hash("password123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &User{Username: username, Email: email, PasswordHash: hash}
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}
