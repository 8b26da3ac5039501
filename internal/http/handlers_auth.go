package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bilancio/internal/auth"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

type ctxKey string

const (
	ctxUserID    ctxKey = "user_id"
	ctxSessionID ctxKey = "session_id"
)

// requireAuth validates the Bearer token and its backing session, and
// rejects tokens for users without a profile row.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := auth.ParseToken(s.jwtSecret, parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := s.sessions.Validate(r.Context(), claims.SessionID)
		if err != nil || userID != claims.UserID {
			writeError(w, http.StatusUnauthorized, "session expired or revoked")
			return
		}

		if _, err := s.repo.GetUser(r.Context(), userID); err != nil {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		ctx = context.WithValue(ctx, ctxSessionID, claims.SessionID)
		next(w, r.WithContext(ctx))
	}
}

func userFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxUserID).(int64)
	return id
}

func sessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxSessionID).(string)
	return id
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Username = sanitizeInput(req.Username)
	req.DisplayName = sanitizeInput(req.DisplayName)
	if len(req.Username) < 3 || len(req.Username) > 50 {
		writeError(w, http.StatusUnprocessableEntity, "username must be 3-50 characters")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash password")
		return
	}

	id, err := s.repo.CreateUser(r.Context(), req.Username, hash, req.DisplayName)
	if err != nil {
		// The username unique constraint is the usual cause here.
		writeError(w, http.StatusConflict, "username already taken")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{ID: id, Username: req.Username, DisplayName: req.DisplayName})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, hash, err := s.repo.GetUserCredentials(r.Context(), sanitizeInput(req.Username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup user")
		return
	}
	if err := auth.CheckPassword(hash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sessionID, err := s.sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create session")
		return
	}

	token, err := auth.GenerateToken(s.jwtSecret, user.ID, sessionID, s.sessions.Now(), s.sessions.TTL())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "user logged in", log.FieldUserID, user.ID)

	writeJSON(w, http.StatusOK, loginResponse{
		Token: token,
		User:  userResponse{ID: user.ID, Username: user.Username, DisplayName: user.DisplayName},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Revoke(r.Context(), sessionFromContext(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, "revoke session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.repo.GetUser(r.Context(), userFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username, DisplayName: user.DisplayName})
}
