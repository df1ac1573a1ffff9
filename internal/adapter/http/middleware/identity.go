package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/iho/splitledger/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// UserIDContextKey is the context key for the authenticated user id
	UserIDContextKey ContextKey = "user_id"

	// UserIDHeader is the trusted identity header used when no JWT
	// manager is configured (internal deployments behind a gateway).
	UserIDHeader = "X-User-ID"
)

// Identity resolves the acting user for a request. With a JWT manager a
// Bearer token is required; without one the X-User-ID header is trusted.
func Identity(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if jwtManager == nil {
				userID := r.Header.Get(UserIDHeader)
				if userID == "" {
					http.Error(w, "missing "+UserIDHeader+" header", http.StatusUnauthorized)
					return
				}

				next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))

				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.Verify(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), claims.UserID)))
		})
	}
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// GetUserID extracts the authenticated user id from context.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(string)
	return userID, ok && userID != ""
}
