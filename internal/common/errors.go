// Package common defines shared constants and sentinel errors used across
// the store, service and transport layers of Skeleton. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")
	ErrorStore    = errors.New("db error")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Hashing and codec failures. Always internal for the request.
	ErrorCrypto = errors.New("crypto error")

	// Auth errors (invalid, tampered or malformed token, reset code mismatch).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
