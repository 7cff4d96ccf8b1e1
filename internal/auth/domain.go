// Package auth implements credential verification, session token lifecycle,
// and role-based authorization for the platform.
package auth

import (
	"errors"
	"time"
)

// Account is the identity record held by the user store. The engine only
// holds it for the duration of a request.
type Account struct {
	ID            string
	Username      string
	Email         string
	FirstName     string
	LastName      string
	PasswordHash  string
	Role          Role
	Institution   string
	LicenseNumber string
	IsActive      bool
	LastLoginAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("auth: account not found")
	// ErrInvalidCredentials indicates a login failure. Callers get no more
	// detail than this.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)
