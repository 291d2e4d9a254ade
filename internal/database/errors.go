package database

import "errors"

var (
	// ErrNotFound indicates a requested record or version does not exist.
	ErrNotFound = errors.New("database: not found")
	// ErrUnknownEntity indicates a table that is not registered as versioned.
	ErrUnknownEntity = errors.New("database: unknown versioned entity")
	// ErrInvalidEntity indicates a registration with unusable identifiers.
	ErrInvalidEntity = errors.New("database: invalid entity definition")
)
