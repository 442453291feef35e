package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nerrad567/todo-core/internal/audit"
	"github.com/nerrad567/todo-core/internal/auth"
)

// registerRequest is the request body for POST /register.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest is the request body for POST /login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is returned by both register and login.
type authResponse struct {
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    auth.Identity `json:"user"`
}

// handleRegister creates an account and signs the caller in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeBadRequest(w, "All fields are required")
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			writeBadRequest(w, "Password must be at most 72 bytes")
			return
		}
		s.logger.Error("hashing password failed", "error", err)
		writeInternalError(w, "Error registering user")
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "Email already registered")
			return
		}
		s.logger.Error("creating user failed", "error", err)
		writeInternalError(w, "Error registering user")
		return
	}

	token, err := auth.GenerateToken(user.Identity(), s.jwtSecret, s.tokenTTL)
	if err != nil {
		s.logger.Error("issuing token failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "Error registering user")
		return
	}

	s.logger.Info("user registered", "user_id", user.ID)
	s.recordAudit(r.Context(), audit.AuditLog{
		Action:     audit.ActionRegister,
		EntityType: audit.EntityUser,
		EntityID:   strconv.FormatInt(user.ID, 10),
		UserEmail:  user.Email,
	})
	writeJSON(w, http.StatusCreated, authResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    user.Identity(),
	})
}

// handleLogin verifies credentials and returns a fresh token.
//
// An unknown email is 404 and a wrong password is 401, so the two cases
// are distinguishable by clients.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "Email and password are required")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.recordLoginFailure(r, req.Email, auth.ErrUserNotFound)
			writeNotFound(w, "User not found")
			return
		}
		s.logger.Error("looking up user failed", "error", err)
		writeInternalError(w, "Error logging in")
		return
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("verifying password failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "Error logging in")
		return
	}
	if !ok {
		s.recordLoginFailure(r, req.Email, auth.ErrInvalidCredentials)
		writeUnauthorized(w, "Invalid credentials")
		return
	}

	token, err := auth.GenerateToken(user.Identity(), s.jwtSecret, s.tokenTTL)
	if err != nil {
		s.logger.Error("issuing token failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "Error logging in")
		return
	}

	s.recordAudit(r.Context(), audit.AuditLog{
		Action:     audit.ActionLogin,
		EntityType: audit.EntityUser,
		EntityID:   strconv.FormatInt(user.ID, 10),
		UserEmail:  user.Email,
	})
	writeJSON(w, http.StatusOK, authResponse{
		Message: "Login successful",
		Token:   token,
		User:    user.Identity(),
	})
}

func (s *Server) recordLoginFailure(r *http.Request, email string, reason error) {
	s.recordAudit(r.Context(), audit.AuditLog{
		Action:     audit.ActionLoginFailed,
		EntityType: audit.EntityUser,
		UserEmail:  email,
		Details:    map[string]any{"reason": reason.Error()},
	})
}
