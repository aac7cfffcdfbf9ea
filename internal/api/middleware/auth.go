// Package middleware contains the HTTP middleware applied by the router.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sydlexius/backbeat/internal/auth"
)

type contextKey string

const (
	userIDKey     contextKey = "userID"
	authMethodKey contextKey = "authMethod"
)

// Auth returns middleware that requires a valid session or API token.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			if strings.HasPrefix(token, auth.TokenPrefix) {
				userID, err := authService.ValidateAPIToken(r.Context(), token)
				if err != nil {
					http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
					return
				}
				ctx := context.WithValue(r.Context(), userIDKey, userID)
				ctx = context.WithValue(ctx, authMethodKey, "api_token")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			userID, err := authService.ValidateSession(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, authMethodKey, "session")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// AuthMethodFromContext returns "session" or "api_token".
func AuthMethodFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(authMethodKey).(string); ok {
		return v
	}
	return ""
}

func extractToken(r *http.Request) string {
	// Session cookie first (browser)
	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}

	// Authorization header (userscripts and API clients)
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	// Query parameter, for clients that cannot set headers
	if apikey := r.URL.Query().Get("apikey"); apikey != "" {
		return apikey
	}

	return ""
}
