package unichrome

import "errors"

var (
	// ErrNotFound is returned when a requested collection name is absent.
	ErrNotFound = errors.New("unichrome: not found")

	// ErrAlreadyExists is returned when creating a collection whose name
	// is already in use.
	ErrAlreadyExists = errors.New("unichrome: already exists")
)
