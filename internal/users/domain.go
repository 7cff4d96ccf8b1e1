// Package users handles account administration for operators holding the
// ManageUsers permission.
package users

import (
	"errors"

	"github.com/medvault/medvault/internal/auth"
)

// Errors surfaced by the management service.
var (
	ErrDuplicate   = errors.New("users: username or email already taken")
	ErrInvalidRole = errors.New("users: unknown role")
)

// NewAccount carries the fields needed to provision an account.
type NewAccount struct {
	Username      string
	Email         string
	FirstName     string
	LastName      string
	Password      string
	Role          auth.Role
	Institution   string
	LicenseNumber string
}
