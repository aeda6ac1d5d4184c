package component

import (
	"errors"
	"fmt"
)

// Sentinel errors for component resolution.
var (
	// ErrModuleNotFound is returned when no registered module or script
	// matches the requested module identifier.
	ErrModuleNotFound = errors.New("component module not found")

	// ErrClassNotFound is returned when the module exists but does not
	// provide the requested class name.
	ErrClassNotFound = errors.New("component class not found")

	// ErrAlreadyRegistered is returned when registering a factory under a
	// (module, className) pair that is already taken.
	ErrAlreadyRegistered = errors.New("component already registered")

	// ErrNilFactory is returned when a nil factory is registered.
	ErrNilFactory = errors.New("factory cannot be nil")
)

// ResolutionError reports a failed component resolution. It is fatal to the
// creation request that triggered it and propagates to the caller.
type ResolutionError struct {
	// Module is the requested module identifier.
	Module string

	// ClassName is the requested class name.
	ClassName string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving component %s.%s: %v", e.Module, e.ClassName, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}
