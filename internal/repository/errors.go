package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned by a conditional write when the
	// stored version no longer matches the version the writer read.
	// It is the expected outcome of losing a concurrent transition,
	// not a failure.
	ErrVersionConflict = errors.New("version conflict")
)
