package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/interfaces/rest"
)

type contextKey string

const ownerIDKey contextKey = "owner_id"

// Identity stashes the authenticated user ID into the request context.
// The identity provider upstream terminates authentication and forwards
// the user in the X-User-ID header; handlers that need an owner reject
// requests where it is missing.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ownerID := r.Header.Get("X-User-ID"); ownerID != "" {
				r = r.WithContext(context.WithValue(r.Context(), ownerIDKey, ownerID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnerID returns the authenticated user from the request context.
func OwnerID(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerIDKey).(string)
	return ownerID, ok && ownerID != ""
}

// RequireAdmin gates operator routes behind a static bearer token.
func RequireAdmin(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-Admin-Token")
			if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				rest.WriteError(w, application.NewUnauthorizedError(), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
