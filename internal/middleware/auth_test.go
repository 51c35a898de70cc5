package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkadri-dev/autocare-backend/internal/auth"
	"github.com/mkadri-dev/autocare-backend/internal/db/dbtest"
	"github.com/mkadri-dev/autocare-backend/internal/models"
)

func setupMiddleware(t *testing.T) (*AuthMiddleware, *auth.Service, *models.User) {
	t.Helper()

	authService, err := auth.NewService()
	require.NoError(t, err)

	users := dbtest.NewFakeUsers()
	user := models.User{
		ID:    primitive.NewObjectID(),
		Role:  models.RoleUser,
		Name:  "Sami",
		Email: "sami@example.com",
	}
	require.NoError(t, users.InsertUser(context.Background(), user))

	return NewAuthMiddleware(authService, users), authService, &user
}

func TestAuthenticate_NoHeader(t *testing.T) {
	mw, _, _ := setupMiddleware(t)

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cars", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	mw, _, _ := setupMiddleware(t)

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cars", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_ResolvesIdentity(t *testing.T) {
	mw, authService, user := setupMiddleware(t)

	token, err := authService.GenerateToken(user)
	require.NoError(t, err)

	var gotIdentity *models.User
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		gotIdentity = identity
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cars", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotIdentity)
	assert.Equal(t, user.ID, gotIdentity.ID)
	assert.Equal(t, user.Email, gotIdentity.Email)
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	mw, authService, _ := setupMiddleware(t)

	ghost := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	token, err := authService.GenerateToken(ghost)
	require.NoError(t, err)

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cars", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	mw, _, _ := setupMiddleware(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	adminOnly := mw.RequireRole(models.RoleAdmin)(next)

	// Regular user is rejected
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req = req.WithContext(WithIdentity(req.Context(), &models.User{Role: models.RoleUser}))
	rec := httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin passes
	req = httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req = req.WithContext(WithIdentity(req.Context(), &models.User{Role: models.RoleAdmin}))
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// No identity at all
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
