// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to act on a resource owned by someone else, while
// ErrConflict signals that an operation cannot proceed given the
// current state (e.g. deleting a book that still has open loans).
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed
// because of conflicting state, such as returning a loan twice or
// shrinking a book's quantity below its borrowed copies. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
