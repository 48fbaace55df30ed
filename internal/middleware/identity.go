// Package middleware provides HTTP middlewares for authentication, logging
// and instrumentation.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/atinyakov/bcards/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// TokenParser verifies a bearer token and returns the identity it carries.
type TokenParser interface {
	Parse(token string) (models.Identity, error)
}

// Identity resolves the caller from the Authorization header and stores it
// in the request context.
//
// A request without the header proceeds as anonymous; the routes decide
// whether that is enough. A header that is present but not a valid bearer
// token is rejected with 401.
func Identity(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				unauthorized(w, "malformed authorization header")
				return
			}
			id, err := parser.Parse(strings.TrimSpace(raw))
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller stored by Identity, or
// models.Anonymous when there is none.
func IdentityFromContext(ctx context.Context) models.Identity {
	if id, ok := ctx.Value(identityKey).(models.Identity); ok {
		return id
	}
	return models.Anonymous
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
