package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/todo-core/internal/audit"
	"github.com/nerrad567/todo-core/internal/todo"
)

// createTodoRequest is the request body for POST /todos.
// Priority stays raw so a non-string value falls back to Medium
// instead of failing the decode.
type createTodoRequest struct {
	Task     string          `json:"task"`
	DueDate  *string         `json:"due_date"`
	Priority json.RawMessage `json:"priority"`
}

// priorityLabel returns the JSON string in raw, or "" for any other value.
func priorityLabel(raw json.RawMessage) string {
	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return ""
	}
	return label
}

// updateTodoRequest is the request body for PUT /todos/{id}.
// Completed is a pointer so an absent field can be told apart from false.
type updateTodoRequest struct {
	Completed *bool `json:"completed"`
}

// createdTodo echoes a new task with its owner.
type createdTodo struct {
	todo.Task
	UserEmail string `json:"user_email"`
}

const msgTaskNotFound = "Task not found or unauthorized"

// handleListTodos returns every task owned by the caller.
func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	tasks, err := s.tasks.ListByOwner(r.Context(), claims.Email)
	if err != nil {
		s.logger.Error("listing tasks failed", "user_id", claims.UserID, "error", err)
		writeInternalError(w, "Error fetching tasks")
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// handleCreateTodo stores a task for the caller and echoes it with the
// resolved due date and priority.
func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	task := &todo.Task{
		OwnerEmail: claims.Email,
		Task:       req.Task,
		DueDate:    req.DueDate,
		Priority:   todo.Priority(priorityLabel(req.Priority)),
	}
	if err := s.tasks.Create(r.Context(), task); err != nil {
		switch {
		case errors.Is(err, todo.ErrTaskRequired):
			writeBadRequest(w, "Task description is required")
		case errors.Is(err, todo.ErrInvalidDueDate):
			writeBadRequest(w, "Invalid due date")
		default:
			s.logger.Error("creating task failed", "user_id", claims.UserID, "error", err)
			writeInternalError(w, "Error creating task")
		}
		return
	}

	s.publishTaskEvent(claims.UserID, TaskEvent{Action: TaskActionCreated, TaskID: task.ID})
	s.recordTaskAudit(r, audit.ActionTaskCreate, task.ID, map[string]any{"priority": string(task.Priority)})
	writeJSON(w, http.StatusCreated, createdTodo{Task: *task, UserEmail: task.OwnerEmail})
}

// handleUpdateTodo sets the completed flag on one of the caller's tasks.
func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Completed == nil {
		writeBadRequest(w, "completed is required")
		return
	}

	if err := s.tasks.UpdateCompletion(r.Context(), id, claims.Email, *req.Completed); err != nil {
		if errors.Is(err, todo.ErrTaskNotFound) {
			writeNotFound(w, msgTaskNotFound)
			return
		}
		s.logger.Error("updating task failed", "user_id", claims.UserID, "task_id", id, "error", err)
		writeInternalError(w, "Error updating task")
		return
	}

	s.publishTaskEvent(claims.UserID, TaskEvent{Action: TaskActionUpdated, TaskID: id, Completed: req.Completed})
	s.recordTaskAudit(r, audit.ActionTaskUpdate, id, map[string]any{"completed": *req.Completed})
	writeJSON(w, http.StatusOK, messageResponse{Message: "Task updated successfully"})
}

// handleDeleteTodo removes one of the caller's tasks.
func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := s.tasks.Delete(r.Context(), id, claims.Email); err != nil {
		if errors.Is(err, todo.ErrTaskNotFound) {
			writeNotFound(w, msgTaskNotFound)
			return
		}
		s.logger.Error("deleting task failed", "user_id", claims.UserID, "task_id", id, "error", err)
		writeInternalError(w, "Error deleting task")
		return
	}

	s.publishTaskEvent(claims.UserID, TaskEvent{Action: TaskActionDeleted, TaskID: id})
	s.recordTaskAudit(r, audit.ActionTaskDelete, id, nil)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Task deleted successfully"})
}

func (s *Server) recordTaskAudit(r *http.Request, action string, id int64, details map[string]any) {
	s.recordAudit(r.Context(), audit.AuditLog{
		Action:     action,
		EntityType: audit.EntityTask,
		EntityID:   strconv.FormatInt(id, 10),
		UserEmail:  claimsFromContext(r.Context()).Email,
		Details:    details,
	})
}

// taskIDParam parses the {id} path parameter, writing a 400 on failure.
func taskIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeBadRequest(w, "invalid task id")
		return 0, false
	}
	return id, true
}
