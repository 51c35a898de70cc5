package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
	RoleEnterprise Role = "enterprise"
)

// User represents an account in the system. EnterpriseName and Address are
// only meaningful when Role is RoleEnterprise; NormalizeRoleFields keeps the
// pairing consistent.
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Role           Role                 `bson:"role" json:"role"`
	Name           string               `bson:"name" json:"name"`
	Email          string               `bson:"email" json:"email"`
	PasswordHash   string               `bson:"password" json:"-"`
	EnterpriseName string               `bson:"enterprise_name,omitempty" json:"enterprise_name,omitempty"`
	Address        string               `bson:"address,omitempty" json:"address,omitempty"`
	Cars           []primitive.ObjectID `bson:"cars" json:"cars"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           Role   `json:"role"`
	EnterpriseName string `json:"enterprise_name"`
	Address        string `json:"address"`
}

// LoginResponse represents a successful login or registration response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleUser, RoleEnterprise:
		return true
	default:
		return false
	}
}

// NormalizeRoleFields clears the enterprise-only fields for every other role.
func (u *User) NormalizeRoleFields() {
	if u.Role != RoleEnterprise {
		u.EnterpriseName = ""
		u.Address = ""
	}
}
