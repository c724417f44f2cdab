// Package middleware provides HTTP middlewares for authentication, logging
// and metrics.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/staffdesk/staffdesk/internal/models"
)

type ctxKey string

const staffKey ctxKey = "staff"

// Authenticator resolves an access token to a staff id.
type Authenticator interface {
	Authenticate(accessToken string) (string, error)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer"
// access token. On success the staff id is stored in the request context.
func BearerAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(w, "Authentication credentials were not provided")
				return
			}
			staffID, err := auth.Authenticate(strings.TrimSpace(token))
			if err != nil {
				unauthorized(w, "Token is invalid or expired")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithStaffID(r.Context(), staffID)))
		})
	}
}

// WithStaffID returns a copy of ctx carrying staffID.
func WithStaffID(ctx context.Context, staffID string) context.Context {
	return context.WithValue(ctx, staffKey, staffID)
}

// GetStaffIDFromContext extracts the authenticated staff id from ctx.
// Returns an empty string if not found.
func GetStaffIDFromContext(ctx context.Context) string {
	val := ctx.Value(staffKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.Envelope{Status: http.StatusUnauthorized, Message: msg, Detail: msg})
}
