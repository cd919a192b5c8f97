package model

import "errors"

var (
	// Account related errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("email or username already exists")

	// Credential related errors
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Request shape errors
	ErrInvalidRequest = errors.New("invalid request")

	// Token related errors. Every verification failure mode (missing,
	// malformed, bad signature, expired, superseded version) is collapsed
	// into ErrUnauthorized before it leaves the service layer.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrVersionConflict is returned by the store when a conditional
	// token version increment loses a race. It never reaches clients.
	ErrVersionConflict = errors.New("token version conflict")

	// Collaborator errors
	ErrStoreUnavailable = errors.New("account store unavailable")
)
