// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates the caller supplied a malformed or incomplete request.
var ErrValidation = errors.New("validation failed")

// ErrCycle indicates a dependency graph contains a circular reference.
var ErrCycle = errors.New("circular dependency")

// ErrExternalToolMissing indicates a required external CLI (git, gh, openspec) is not on PATH.
var ErrExternalToolMissing = errors.New("required external tool not found")
