package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/mkadri-dev/autocare-backend/internal/auth"
	"github.com/mkadri-dev/autocare-backend/internal/db"
	"github.com/mkadri-dev/autocare-backend/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const identityContextKey contextKey = "identity"

// AuthMiddleware validates bearer tokens and resolves the acting identity.
// The full user record is loaded once per request and threaded through the
// request context, so handlers never consult ambient session state.
type AuthMiddleware struct {
	authService *auth.Service
	users       db.UserCollection
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService *auth.Service, users db.UserCollection) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		users:       users,
	}
}

// Authenticate validates the JWT and injects the resolved user identity.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "authorization header required")
			return
		}

		claims, err := m.authService.ValidateToken(authHeader)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}

		identity, err := m.users.FindUserByID(r.Context(), claims.UserID)
		if err != nil {
			// Token is valid but the account is gone
			log.WithField("user_id", claims.UserID).Warn("token resolved to unknown user")
			unauthorized(w, "user not found")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole restricts a route to the listed roles. It must run after
// Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				unauthorized(w, "identity not resolved")
				return
			}

			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"msg": "access denied: insufficient role"})
		})
	}
}

// IdentityFromContext extracts the resolved user identity from the context.
func IdentityFromContext(ctx context.Context) (*models.User, bool) {
	identity, ok := ctx.Value(identityContextKey).(*models.User)
	return identity, ok
}

// WithIdentity returns a context carrying the given identity. Used by tests.
func WithIdentity(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, identityContextKey, user)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"msg": msg})
}
