package auth

import (
	"github.com/quickmart-dev/quickmart-backend/internal/users"
)

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    *string
}

// LoginInput carries the credential pair plus the caller's remote address for
// rate limiting.
type LoginInput struct {
	Email    string
	Password string
	RemoteIP string
}

// AuthResult is returned on successful register or login.
type AuthResult struct {
	User        *users.UserDTO `json:"user"`
	AccessToken string         `json:"access_token"`
}
