package audit

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/todo-core/internal/infrastructure/database"
	_ "github.com/nerrad567/todo-core/migrations" // registers embedded schema
)

func testRepo(t *testing.T) (*SQLiteRepository, *sql.DB) {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "audit-test.db"),
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
	return NewSQLiteRepository(db.DB), db.DB
}

func TestCreate_FillsDefaults(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	log := &AuditLog{Action: ActionRegister, EntityType: EntityUser, EntityID: "1", UserEmail: "a@x.com"}
	if err := repo.Create(ctx, log); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if log.ID == "" || log.Source != "api" || log.CreatedAt.IsZero() {
		t.Errorf("defaults not filled: %+v", log)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.Total != 1 || len(result.Logs) != 1 {
		t.Fatalf("Total = %d, len = %d, want 1", result.Total, len(result.Logs))
	}
	got := result.Logs[0]
	if got.ID != log.ID || got.Action != ActionRegister || got.EntityID != "1" || got.UserEmail != "a@x.com" {
		t.Errorf("stored log = %+v, want %+v", got, log)
	}
}

func TestCreate_Details(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	err := repo.Create(ctx, &AuditLog{
		Action:     ActionLoginFailed,
		EntityType: EntityUser,
		UserEmail:  "a@x.com",
		Details:    map[string]any{"reason": "invalid credentials"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := repo.List(ctx, Filter{Action: ActionLoginFailed})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Logs) != 1 {
		t.Fatalf("len = %d, want 1", len(result.Logs))
	}
	if reason := result.Logs[0].Details["reason"]; reason != "invalid credentials" {
		t.Errorf("details reason = %v, want invalid credentials", reason)
	}
	if result.Logs[0].EntityID != "" {
		t.Errorf("EntityID = %q, want empty", result.Logs[0].EntityID)
	}
}

func TestList_FiltersAndOrder(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	entries := []AuditLog{
		{Action: ActionLogin, EntityType: EntityUser, UserEmail: "a@x.com", CreatedAt: base},
		{Action: ActionTaskCreate, EntityType: EntityTask, EntityID: "1", UserEmail: "a@x.com", CreatedAt: base.Add(time.Minute)},
		{Action: ActionLogin, EntityType: EntityUser, UserEmail: "b@x.com", CreatedAt: base.Add(2 * time.Minute)},
		{Action: ActionTaskDelete, EntityType: EntityTask, EntityID: "1", UserEmail: "a@x.com", CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create[%d]: %v", i, err)
		}
	}

	tests := []struct {
		name       string
		filter     Filter
		wantTotal  int
		wantAction []string
	}{
		{"all", Filter{}, 4, []string{ActionTaskDelete, ActionLogin, ActionTaskCreate, ActionLogin}},
		{"by user", Filter{UserEmail: "a@x.com"}, 3, []string{ActionTaskDelete, ActionTaskCreate, ActionLogin}},
		{"by action", Filter{Action: ActionLogin}, 2, []string{ActionLogin, ActionLogin}},
		{"by both", Filter{Action: ActionLogin, UserEmail: "b@x.com"}, 1, []string{ActionLogin}},
		{"page", Filter{Limit: 2, Offset: 1}, 4, []string{ActionLogin, ActionTaskCreate}},
		{"no match", Filter{UserEmail: "nobody@x.com"}, 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if result.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", result.Total, tt.wantTotal)
			}
			if len(result.Logs) != len(tt.wantAction) {
				t.Fatalf("len = %d, want %d", len(result.Logs), len(tt.wantAction))
			}
			for i, want := range tt.wantAction {
				if result.Logs[i].Action != want {
					t.Errorf("Logs[%d].Action = %q, want %q", i, result.Logs[i].Action, want)
				}
			}
		})
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	for i := range 3 {
		if err := repo.Create(ctx, &AuditLog{Action: ActionLogin, EntityType: EntityUser, UserEmail: fmt.Sprintf("u%d@x.com", i)}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, defaultListLimit, 0},
		{-5, -1, defaultListLimit, 0},
		{maxListLimit + 1, 0, maxListLimit, 0},
		{10, 2, 10, 2},
	}

	for _, tt := range tests {
		result, err := repo.List(ctx, Filter{Limit: tt.limit, Offset: tt.offset})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if result.Limit != tt.wantLimit || result.Offset != tt.wantOffset {
			t.Errorf("List(limit=%d, offset=%d) = (%d, %d), want (%d, %d)",
				tt.limit, tt.offset, result.Limit, result.Offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestStorageFailure(t *testing.T) {
	repo, db := testRepo(t)
	db.Close()

	if err := repo.Create(context.Background(), &AuditLog{Action: ActionLogin, EntityType: EntityUser}); err == nil {
		t.Error("Create on closed db should fail")
	}
	if _, err := repo.List(context.Background(), Filter{}); err == nil {
		t.Error("List on closed db should fail")
	}
}
