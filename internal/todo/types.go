package todo

import (
	"errors"
	"strings"
	"time"
)

// Priority is a task's urgency label.
type Priority string

// Valid priorities. Anything else resolves to PriorityMedium.
const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// DueDateLayout is the canonical stored and returned due date format (UTC).
const DueDateLayout = "2006-01-02 15:04:05"

// Task is a single to-do item owned by the user with OwnerEmail.
type Task struct {
	ID         int64     `json:"id"`
	OwnerEmail string    `json:"-"`
	Task       string    `json:"task"`
	Completed  bool      `json:"completed"`
	DueDate    *string   `json:"due_date"`
	Priority   Priority  `json:"priority"`
	CreatedAt  time.Time `json:"-"`
}

// Sentinel errors for task operations.
var (
	// ErrTaskRequired is returned when the description is empty.
	ErrTaskRequired = errors.New("task description is required")

	// ErrInvalidDueDate is returned when a due date cannot be parsed.
	ErrInvalidDueDate = errors.New("invalid due date")

	// ErrTaskNotFound covers both a missing task and one owned by
	// someone else, so callers cannot probe for other users' ids.
	ErrTaskNotFound = errors.New("task not found")
)

// ResolvePriority returns p if it is exactly High, Medium or Low and
// PriorityMedium otherwise, including for the empty string.
func ResolvePriority(p string) Priority {
	switch Priority(p) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(p)
	default:
		return PriorityMedium
	}
}

// dueDateLayouts are the accepted input formats, tried in order.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	DueDateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NormaliseDueDate converts an optional due date to DueDateLayout in UTC.
//
// nil or blank input means no due date and returns (nil, nil). Inputs with
// a zone offset are converted to UTC; inputs without one are taken as UTC.
// Unparseable input returns ErrInvalidDueDate.
func NormaliseDueDate(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, nil
	}

	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			out := t.UTC().Format(DueDateLayout)
			return &out, nil
		}
	}
	return nil, ErrInvalidDueDate
}
