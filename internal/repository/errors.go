// Package repository holds the development API's in-memory records.  The
// sentinel errors below let handlers map failures onto HTTP statuses.
package repository

import "errors"

// ErrNotFound is returned when a record does not exist.  Handlers also use
// it for records the caller may not see, so existence is not leaked.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by UserRepo.Create for a duplicate email.
var ErrEmailExists = errors.New("email already exists")
