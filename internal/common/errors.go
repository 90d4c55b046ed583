// Package common defines shared constants and sentinel errors used across
// qrshare components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage error")

	// Access errors.
	ErrExpired = errors.New("expired")
	ErrDenied  = errors.New("access denied")
	ErrCorrupt = errors.New("integrity check failed")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors.
	ErrorInvalidInput = errors.New("invalid input")

	// Link token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
