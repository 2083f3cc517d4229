package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/models"
)

// SessionCookieName is the cookie that carries the session token for browser clients
const SessionCookieName = "session_token"

// SessionValidator turns a session token into the session of an existing account
type SessionValidator interface {
	// Method Authenticate returns the session for the token.
	//
	// If the token is invalid or its account no longer exists, an apperrors.ErrUnauthenticated error is returned.
	Authenticate(ctx context.Context, token string) (models.Session, error)
}

// AuthMiddleware authenticates the session token and stores the session in the request context
func AuthMiddleware(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			session, err := validator.Authenticate(r.Context(), token)
			if errors.Is(err, apperrors.ErrUnauthenticated) {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RoleMiddleware rejects requests whose session does not satisfy allow.
// It must run after AuthMiddleware.
func RoleMiddleware(allow func(models.Session) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSession(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !allow(session) {
				writeJSONError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession returns a copy of ctx carrying the session
func WithSession(ctx context.Context, session models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// GetSession retrieves the session from context
func GetSession(ctx context.Context) (models.Session, bool) {
	session, ok := ctx.Value(sessionKey).(models.Session)
	return session, ok
}

// extractToken reads the token from the Authorization header, falling back to the session cookie
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
