// Package repository persists tickets and users. Every backend (Postgres, Mongo,
// memory) returns the sentinel errors below so services can translate them
// without knowing the driver.
package repository

import "errors"

// ErrNotFound is returned when the referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a concurrent writer changed the record between
// read and write. The operation is not retried.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when a unique field (user email) is already taken.
var ErrDuplicate = errors.New("duplicate")
