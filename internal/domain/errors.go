package domain

import "errors"

var (
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing auction, bid or user.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an actor that may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrStateConflict marks a transition attempted from the wrong status.
	ErrStateConflict = errors.New("state conflict")
	// ErrPersistence marks a storage failure.
	ErrPersistence = errors.New("persistence failure")
)
