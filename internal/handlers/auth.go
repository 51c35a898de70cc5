package handlers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkadri-dev/autocare-backend/internal/apperr"
	"github.com/mkadri-dev/autocare-backend/internal/auth"
	"github.com/mkadri-dev/autocare-backend/internal/db"
	"github.com/mkadri-dev/autocare-backend/internal/middleware"
	"github.com/mkadri-dev/autocare-backend/internal/models"
)

// AuthHandler handles registration, login and the current-user endpoint.
type AuthHandler struct {
	authService *auth.Service
	users       db.UserCollection
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(authService *auth.Service, users db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
	}
}

// Register handles self-service account creation. The admin role cannot be
// self-assigned; admin accounts are provisioned through the admin console.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, apperr.Validation("please fill all required fields (name, email, password)"))
		return
	}
	if err := h.authService.ValidateName(req.Name); err != nil {
		writeError(w, apperr.Validation("%s", err.Error()))
		return
	}
	if err := h.authService.ValidateEmail(req.Email); err != nil {
		writeError(w, apperr.Validation("%s", err.Error()))
		return
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		writeError(w, apperr.Validation("%s", err.Error()))
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role == models.RoleAdmin {
		writeError(w, apperr.Forbidden("cannot self-register an admin account"))
		return
	}
	if !models.IsValidRole(role) {
		writeError(w, apperr.Validation("invalid role"))
		return
	}

	if _, err := h.users.FindUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, apperr.Conflict("user with this email already exists"))
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		writeError(w, apperr.Internal("failed to hash password", err))
		return
	}

	user := models.User{
		ID:             primitive.NewObjectID(),
		Role:           role,
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   hash,
		EnterpriseName: req.EnterpriseName,
		Address:        req.Address,
		Cars:           []primitive.ObjectID{},
	}
	user.NormalizeRoleFields()

	if err := h.users.InsertUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.authService.GenerateToken(&user)
	if err != nil {
		writeError(w, apperr.Internal("failed to generate token", err))
		return
	}

	writeJSON(w, http.StatusCreated, models.LoginResponse{Token: token, User: user})
}

// Login handles credential checks and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, apperr.Validation("email and password are required"))
		return
	}

	user, err := h.users.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, apperr.Unauthenticated("invalid credentials"))
		return
	}
	if !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, apperr.Unauthenticated("invalid credentials"))
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		writeError(w, apperr.Internal("failed to generate token", err))
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("identity not resolved"))
		return
	}
	writeJSON(w, http.StatusOK, identity)
}
