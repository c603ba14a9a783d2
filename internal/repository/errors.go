package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateKey is returned when an insert violates a unique
	// constraint, e.g. two concurrent first-time inserts for the same
	// ledger natural key. Callers treat this as a detectable conflict,
	// never a silent double record.
	ErrDuplicateKey = errors.New("duplicate key")
)
