package models

import (
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation error")

	// Job state machine violations. These are programmer errors surfaced to
	// the caller, never silently ignored or clamped.
	ErrInvalidTransition  = errors.New("invalid job state transition")
	ErrTerminalState      = errors.New("job is in a terminal state")
	ErrProgressRegression = errors.New("progress must be non-decreasing")
	ErrJobCancelled       = errors.New("job cancelled")
	ErrPackagingFailed    = errors.New("course packaging failed")
	ErrNoCurriculum       = errors.New("no curriculum planned")
)
