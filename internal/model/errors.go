package model

import "errors"

// Common errors used across the application
var (
	// Authentication errors (surfaced as auth_error notifications)
	ErrInitialization = errors.New("identity provider initialization failed")
	ErrAuthentication = errors.New("authentication rejected")
	ErrConnectivity   = errors.New("connectivity failure")
	ErrSessionExpired = errors.New("session expired")

	// Caller contract violations
	ErrInvalidTransition = errors.New("operation not valid in current session state")
	ErrNotInitialized    = errors.New("identity provider not initialized")
	ErrInvalidName       = errors.New("invalid player name")
	ErrUnknownStat       = errors.New("unknown stat")

	// Persistence errors (absorbed by the synchronizer)
	ErrBlobNotFound = errors.New("blob not found")
	ErrDataDecode   = errors.New("malformed progression data")
	ErrNotLoaded    = errors.New("progression not loaded")

	// Progression validation errors (wrapped in ErrDataDecode on load)
	ErrInvalidLevel       = errors.New("level must be at least 1")
	ErrNegativeValue      = errors.New("value must not be negative")
	ErrExperienceOverflow = errors.New("experience exceeds level requirement")

	// Account errors
	ErrPlayerNotFound = errors.New("player not found")
)
