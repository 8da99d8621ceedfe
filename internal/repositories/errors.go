package repositories

import "errors"

// ErrNotFound is returned when a lookup matches no row. Services translate it
// into the matching domain error.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert or update violates a unique index.
var ErrDuplicate = errors.New("duplicate record")
