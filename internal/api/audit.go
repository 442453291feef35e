package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/todo-core/internal/audit"
)

// recordAudit appends entry to the activity trail.
// A failed write is logged and does not fail the request.
func (s *Server) recordAudit(ctx context.Context, entry audit.AuditLog) {
	if s.audit == nil {
		return
	}

	if err := s.audit.Create(context.WithoutCancel(ctx), &entry); err != nil {
		s.logger.Warn("writing audit log failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"request_id", requestIDFromContext(ctx),
			"error", err,
		)
	}
}

// handleListActivity returns the caller's own audit trail, newest first.
//
// Query parameters:
//   - action: filter by action (register, login, login_failed, task_create, ...)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeInternalError(w, "audit logging not configured")
		return
	}

	claims := claimsFromContext(r.Context())
	q := r.URL.Query()
	filter := audit.Filter{
		Action:    q.Get("action"),
		UserEmail: claims.Email,
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit logs failed", "user_id", claims.UserID, "error", err)
		writeInternalError(w, "Error fetching activity")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
