// Package auth handles user accounts, token issuance and the session cache
// for the e-learning API. It provides registration with emailed activation
// codes, password and social login, token refresh, logout, and the Auth Gate
// middleware every protected route sits behind.
//
// A user is logged in exactly when a session snapshot exists for their id.
// The gate reads that snapshot and never re-queries MariaDB.
package auth

import (
	"slices"
	"strings"
	"time"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole converts s into a Role. Anything outside the set is rejected.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", apperror.NewValidation("role must be one of: user, admin")
	}
}

// Avatar is an image stored on the asset host.
type Avatar struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// User is a registered account. The JSON form of a User, which never
// includes the password hash, is also the session snapshot.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses or snapshots.
	Avatar       *Avatar   `json:"avatar,omitempty"`
	Role         Role      `json:"role"`
	IsVerified   bool      `json:"is_verified"`
	Courses      []string  `json:"courses"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasCourse reports whether the user has purchased courseID.
func (u *User) HasCourse(courseID string) bool {
	return slices.Contains(u.Courses, courseID)
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// ActivateRequest is the body of POST /activateUser.
type ActivateRequest struct {
	ActivationToken string `json:"activationToken" validate:"required"`
	ActivationCode  string `json:"activationCode" validate:"required"`
}

// LoginRequest is the body of POST /login. Missing fields are reported with
// a single message, so there are no validate tags here.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SocialAuthRequest is the body of POST /socialAuth. IDToken is required
// when an OIDC provider is configured.
type SocialAuthRequest struct {
	Email   string `json:"email" validate:"omitempty,email"`
	Name    string `json:"name" validate:"omitempty,max=100"`
	Avatar  string `json:"avatar" validate:"omitempty,url"`
	IDToken string `json:"idToken"`
}

// UpdateInfoRequest is the body of PUT /updateUserInfo.
type UpdateInfoRequest struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=100"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
}

// UpdatePasswordRequest is the body of PUT /updateUserPassword.
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=128"`
}

// UpdateAvatarRequest is the body of POST /updateUserAvatar. Avatar is a
// base64 image or data URL.
type UpdateAvatarRequest struct {
	Avatar string `json:"avatar"`
}

// UpdateRoleRequest is the body of PUT /updateUserRole.
type UpdateRoleRequest struct {
	ID   string `json:"id" validate:"required"`
	Role string `json:"role" validate:"required"`
}

// --- Service Input/Output DTOs ---

// RegisterInput is the validated input for starting a registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// SocialInput is the identity asserted by a social login.
type SocialInput struct {
	Email     string
	Name      string
	AvatarURL string
}

// TokenPair is what a successful login or refresh hands to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult bundles the logged-in user and their fresh tokens.
type LoginResult struct {
	User   *User
	Tokens TokenPair
}

// normalizeEmail lowercases and trims an email address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
