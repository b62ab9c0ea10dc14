package store

import "errors"

// Sentinel errors returned by workflow operations. Callers branch with
// errors.Is; anything else surfacing from a store is a storage failure and
// safe to retry whole, since failed operations leave no partial state.
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidState        = errors.New("invalid state")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
