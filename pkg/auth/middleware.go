package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// ContextKeySession is the context key for the authenticated session
const ContextKeySession contextKey = "auth_session"

// Middleware enforces authentication: either a bearer token from a prior
// login, or HTTP basic credentials. With no users registered, every request
// passes.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.HasUsers() {
				next.ServeHTTP(w, r)
				return
			}

			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				token := strings.TrimPrefix(header, "Bearer ")
				if session, err := m.ValidateToken(token); err == nil {
					ctx := context.WithValue(r.Context(), ContextKeySession, session)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				http.Error(w, "Unauthorized: invalid or expired token", http.StatusUnauthorized)
				return
			}

			if username, password, ok := r.BasicAuth(); ok {
				if m.CheckPassword(username, password) {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate", `Basic realm="clara-db"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}
}

// GetSession extracts the session from the request context
func GetSession(r *http.Request) (*Session, bool) {
	session, ok := r.Context().Value(ContextKeySession).(*Session)
	return session, ok
}
