package api

import (
	"context"
	"net/http"
	"strings"

	"pokerplan/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// AuthMiddleware is the session gate in front of protected routes: it
// extracts the bearer token, verifies it, and attaches the typed identity
// to the request context. On any failure the downstream handler is never
// invoked.
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.Validate(parts[1])
		if err != nil {
			unauthorized(w, "Invalid or expired token")
			return
		}

		identity := auth.IdentityFromClaims(claims)
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentity returns the identity attached by RequireAuth, or false if
// the request never passed the session gate.
func GetIdentity(r *http.Request) (auth.Identity, bool) {
	identity, ok := r.Context().Value(identityKey).(auth.Identity)
	return identity, ok
}
