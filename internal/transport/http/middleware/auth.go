package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-signup-nosql/internal/domain"
	jwtinfra "github.com/go-signup-nosql/internal/infrastructure/jwt"
)

type contextKey string

const claimsKey contextKey = "claims"

// SessionValidator checks a bearer credential against its signature and the
// recorded session.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*jwtinfra.Claims, error)
}

// Auth returns middleware that validates the Bearer token and injects claims into context.
func Auth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
				return
			}
			claims, err := sessions.Validate(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				status, msg := http.StatusServiceUnavailable, "Could not validate session"
				var de *domain.Error
				if errors.As(err, &de) && de.Kind == domain.KindUnauthorized {
					status, msg = http.StatusUnauthorized, de.Message
				}
				writeJSONError(w, status, msg)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts token claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}

// WithClaims is used by tests and handlers that need claims without the
// middleware.
func WithClaims(ctx context.Context, c *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}
