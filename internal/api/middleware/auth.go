package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sydlexius/phonyfy/internal/account"
)

type contextKey string

const (
	usernameKey contextKey = "username"
	roleKey     contextKey = "role"
)

// SessionValidator resolves a bearer token to the account it was issued to.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (account.Session, error)
}

// Auth returns middleware that requires a valid bearer token.
func Auth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.ValidateSession(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), usernameKey, sess.Username)
			ctx = context.WithValue(ctx, roleKey, sess.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UsernameFromContext extracts the authenticated username from the context.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// RoleFromContext returns the authenticated account's role, or "" when the
// request carried no session.
func RoleFromContext(ctx context.Context) account.Role {
	if v, ok := ctx.Value(roleKey).(account.Role); ok {
		return v
	}
	return ""
}

// RequireAdmin rejects requests whose session is not an admin's. It must run
// inside Auth.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if RoleFromContext(r.Context()) != account.RoleAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"admin role required"}` + "\n")) //nolint:errcheck
			return
		}
		next.ServeHTTP(w, r)
	}
}

// TokenFromRequest returns the bearer token carried by r, if any.
func TokenFromRequest(r *http.Request) string {
	return extractToken(r)
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="phonyfy"`)
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}` + "\n")) //nolint:errcheck
}
