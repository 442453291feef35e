package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for task persistence.
// Every operation is scoped to an owner email.
type Repository interface {
	ListByOwner(ctx context.Context, ownerEmail string) ([]Task, error)
	Create(ctx context.Context, task *Task) error
	GetOwned(ctx context.Context, id int64, ownerEmail string) (*Task, error)
	UpdateCompletion(ctx context.Context, id int64, ownerEmail string, completed bool) error
	Delete(ctx context.Context, id int64, ownerEmail string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed task repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const taskColumns = "id, user_email, task, completed, due_date, priority, created_at"

// ListByOwner returns the owner's tasks in creation order.
// The result is never nil.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerEmail string) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM todos WHERE user_email = ? ORDER BY id ASC", ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// Create validates and inserts task, then sets its ID and CreatedAt.
//
// The description must be non-empty (ErrTaskRequired). The
// due date is normalised (ErrInvalidDueDate) and the priority resolved, and
// both are written back to task so the caller can echo them. Completed is
// always stored false.
func (r *SQLiteRepository) Create(ctx context.Context, task *Task) error {
	if task.Task == "" {
		return ErrTaskRequired
	}

	due, err := NormaliseDueDate(task.DueDate)
	if err != nil {
		return err
	}

	task.DueDate = due
	task.Priority = ResolvePriority(string(task.Priority))
	task.Completed = false
	now := time.Now().UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (user_email, task, completed, due_date, priority, created_at)
		 VALUES (?, ?, 0, ?, ?, ?)`,
		task.OwnerEmail, task.Task, nullableString(task.DueDate), string(task.Priority), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading task id: %w", err)
	}

	task.ID = id
	task.CreatedAt = now
	return nil
}

// GetOwned returns the task with id if it belongs to ownerEmail.
// A missing task and a task owned by someone else both return ErrTaskNotFound.
func (r *SQLiteRepository) GetOwned(ctx context.Context, id int64, ownerEmail string) (*Task, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM todos WHERE id = ? AND user_email = ?", id, ownerEmail)
	return scanTask(row)
}

// UpdateCompletion sets the completed flag on an owned task.
//
// Ownership is checked first; the update is itself scoped to the owner and
// zero affected rows (the task vanished in between) returns ErrTaskNotFound.
func (r *SQLiteRepository) UpdateCompletion(ctx context.Context, id int64, ownerEmail string, completed bool) error {
	if _, err := r.GetOwned(ctx, id, ownerEmail); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE todos SET completed = ? WHERE id = ? AND user_email = ?",
		boolToInt(completed), id, ownerEmail,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return requireAffected(result)
}

// Delete removes an owned task using the same check-then-act as
// UpdateCompletion.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64, ownerEmail string) error {
	if _, err := r.GetOwned(ctx, id, ownerEmail); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM todos WHERE id = ? AND user_email = ?", id, ownerEmail)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return requireAffected(result)
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var (
		t         Task
		completed int
		due       sql.NullString
		priority  string
		createdAt string
	)

	err := s.Scan(&t.ID, &t.OwnerEmail, &t.Task, &completed, &due, &priority, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	t.Completed = completed != 0
	t.Priority = Priority(priority)
	if due.Valid {
		t.DueDate = &due.String
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &t, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
