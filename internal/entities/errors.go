package entities

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBlocked     = errors.New("account is permanently blocked")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAccountPending     = errors.New("account is awaiting interview approval")
	ErrInterviewComplete  = errors.New("interview already complete")
	ErrEmptyAnswer        = errors.New("answer must not be empty")
	ErrApplicationDecided = errors.New("application already decided")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrRateLimited        = errors.New("rate limit exceeded")
)
