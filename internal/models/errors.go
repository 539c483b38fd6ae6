package models

import (
	"errors"
	"fmt"
)

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// Subprocess phase
	ErrSpawnFailed ErrorType = "spawn_failed"
	ErrNonZeroExit ErrorType = "nonzero_exit"

	// Filesystem phase
	ErrFilesystemFailed ErrorType = "filesystem_failed"

	// Pre-execution
	ErrInvalidConfig  ErrorType = "invalid_config"
	ErrInvalidPattern ErrorType = "invalid_pattern"
)

// Error is a typed pipeline failure. Op names the operation that failed,
// e.g. "zip" or "git clone". Code is only set for ErrNonZeroExit.
type Error struct {
	Type ErrorType
	Op   string
	Code int
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Type == ErrNonZeroExit:
		return fmt.Sprintf("%s: exited with code %d", e.Op, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Type, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Type)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsType reports whether err wraps an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}
