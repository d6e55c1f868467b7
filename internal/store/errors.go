package store

import "errors"

var (
	ErrNotFound = errors.New("store: resource not found")
	// ErrConflict marks writes rejected by terminal-state guards.
	ErrConflict = errors.New("store: conflicting resource state")
)
