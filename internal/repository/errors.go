// Package repository persists users, refresh tokens and password-reset
// tokens against MySQL.  Sentinel errors defined here let handlers and the
// auth service distinguish failure scenarios without inspecting driver
// error strings, e.g. mapping ErrEmailExists onto an HTTP 400 while any
// other storage failure stays a generic 500.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique
// index on users.email.  Uniqueness is enforced by the constraint, not by
// a check-then-insert, so concurrent registrations cannot race a
// duplicate row into the table.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no row.  Callers decide
// how visible to make it: the auth service collapses a missing user into
// the same response as a wrong password.
var ErrNotFound = errors.New("not found")
