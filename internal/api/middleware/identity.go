package middleware

import (
	"context"
	"net/http"

	"github.com/mugisha-web/igihozo-server/internal/models"
	"github.com/mugisha-web/igihozo-server/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// IdentityMiddleware resolves the caller's profile for stamping
// outgoing messages. Authentication itself happens upstream (the
// session layer); this only maps the session-supplied id to a profile.
type IdentityMiddleware struct {
	users store.UserStore
}

// NewIdentityMiddleware creates a new identity middleware.
func NewIdentityMiddleware(users store.UserStore) *IdentityMiddleware {
	return &IdentityMiddleware{users: users}
}

// RequireIdentity loads the caller's profile from the X-User-ID header
// and stores it in the request context.
func (m *IdentityMiddleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			jsonError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}

		user, err := m.users.GetUser(r.Context(), userID)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "database error")
			return
		}
		if user == nil {
			jsonError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserFromContext retrieves the resolved profile from the context.
// Returns nil if the identity middleware did not run.
func GetUserFromContext(ctx context.Context) *models.UserProfile {
	user, _ := ctx.Value(UserContextKey).(*models.UserProfile)
	return user
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
