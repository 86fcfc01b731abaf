package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
	"github.com/mektep-hub/mektep-school-hub/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// Login exchanges chat id + password for a session token. All protected
// endpoints carry the token as "Authorization: Bearer <token>".
// ══════════════════════════════════════════════════════════════════════════════

type loginRequest struct {
	ChatID   int64  `json:"chat_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in_seconds"`
}

// handleLogin authenticates a user and issues a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}

	if req.ChatID == 0 || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "chat_id and password are required")
		return
	}

	u, err := s.deps.Users.GetByChatID(r.Context(), user.ChatID(req.ChatID))
	if err != nil {
		if shared.IsNotFound(err) {
			// Same response as a wrong password so login probes cannot
			// enumerate accounts.
			writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid chat id or password")
			return
		}
		s.writeError(w, r, err)
		return
	}

	if u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid chat id or password")
		return
	}

	session, err := s.deps.Sessions.Create(r.Context(), u.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		UserID:    u.ID.String(),
		Role:      u.Role.String(),
		ExpiresIn: int64(redis.TTLSession.Seconds()),
	})
}

// handleLogout revokes the caller's session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization token is required")
		return
	}

	if err := s.deps.Sessions.Revoke(r.Context(), token); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// requireSession resolves the session token and injects the caller's user
// ID into the request context.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization token is required")
			return
		}

		session, err := s.deps.Sessions.Get(r.Context(), token)
		if err != nil {
			if errors.Is(err, redis.ErrSessionNotFound) {
				writeJSONError(w, http.StatusUnauthorized, "invalid_token", "Session is unknown or expired")
				return
			}
			s.logger.Error("session lookup failed",
				zap.String("request_id", getRequestID(r.Context())),
				zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, session.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authUserID returns the authenticated caller's user ID from the context.
func authUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(contextKeyUserID).(uuid.UUID)
	return id, ok
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
