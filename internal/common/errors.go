// Package common defines shared constants and sentinel errors used across
// the orgchart server, admin CLI and HTTP client. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors.
	ErrMissingFields = errors.New("missing fields")

	// Account errors.
	ErrUsernameTaken       = errors.New("username is taken")
	ErrUserNotFound        = errors.New("user not found")
	ErrCredentialsMismatch = errors.New("username and password do not match")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
)
