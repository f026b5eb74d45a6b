package core

import "errors"

// Outcome kinds reported by the credential and transaction stores.
var (
	ErrInvalidEmail   = errors.New("invalid email")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrNotFound       = errors.New("not found")
	ErrStorageFault   = errors.New("storage fault")
	ErrParseFault     = errors.New("malformed persisted value")

	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Validation errors.
var (
	ErrEmptyEmail       = errors.New("empty email")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidYearMonth = errors.New("invalid month")
	ErrInvalidKind      = errors.New("invalid transaction type")
	ErrInvalidCategory  = errors.New("invalid category")
)
