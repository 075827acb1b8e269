// Package common contains shared sentinel errors and small utilities used
// across the gateway. Repositories and services return these sentinels at the
// point of detection; the transport boundary maps them to status codes.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound             = errors.New("not found")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrRequestAlreadyExists = errors.New("change password request already exists")

	// Credential / token errors.
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidConfirmation = errors.New("invalid change password request")

	// Anything unclassified. Never carries internal detail to the wire.
	ErrInternal = errors.New("internal error")
)
