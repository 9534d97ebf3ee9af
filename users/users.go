package users

import (
	"errors"
	"strings"
	"unicode"
)

// Password strength failures, in the order they are checked.
var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordNoNumber = errors.New("password must contain at least one number")
	ErrPasswordNoUpper  = errors.New("password must contain at least one uppercase letter")
)

// Roles used by the application shell. The server may send any string; these
// are the ones routes are gated on.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// User is the identity of the signed-in user as returned by the me endpoint.
type User struct {
	ID    string   `json:"id"`             // Unique identifier for the user
	Email string   `json:"email"`          // User's email address
	Name  *string  `json:"name,omitempty"` // Display name, absent when the user never set one
	Roles []string `json:"roles"`          // Role names, compared case-insensitively
}

// DisplayName returns the user's name, falling back to the email address.
func (u *User) DisplayName() string {
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		return *u.Name
	}
	return u.Email
}

// HasRole reports whether the user holds role, ignoring case.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user's roles intersect required. An empty
// required list is satisfied by any user.
func (u *User) HasAnyRole(required ...string) bool {
	if len(required) == 0 {
		return true
	}
	if u == nil {
		return false
	}
	for _, role := range required {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// Normalize fills the zero values a server may omit so callers never see a nil
// Roles slice.
func (u *User) Normalize() {
	if u.Roles == nil {
		u.Roles = []string{}
	}
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains at least one uppercase letter
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len([]rune(password)) < 8 {
		return ErrPasswordTooShort
	}

	var (
		hasUpper  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasNumber {
		return ErrPasswordNoNumber
	}
	if !hasUpper {
		return ErrPasswordNoUpper
	}

	return nil
}
