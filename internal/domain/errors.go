package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBettingClosed     = errors.New("betting closed")
	ErrSelfBet           = errors.New("cannot bet on a match involving your own team")
	ErrOddsChanged       = errors.New("odds changed")
	ErrLockHeld          = errors.New("lock already held")
)
