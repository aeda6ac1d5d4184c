package descriptor

import (
	"errors"
	"fmt"
)

// Sentinel errors for descriptor construction.
var (
	// ErrMissingField is returned when a required descriptor field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrUnrecognizedField is returned when a descriptor mapping contains an
	// unknown key.
	ErrUnrecognizedField = errors.New("unrecognized field")

	// ErrInvalidField is returned when a field value has the wrong shape.
	ErrInvalidField = errors.New("invalid field value")
)

// FieldError reports a problem with a single descriptor field.
type FieldError struct {
	// Descriptor is the descriptor kind being parsed ("app" or "bus").
	Descriptor string

	// Field is the offending key.
	Field string

	// Err is one of the sentinel errors above.
	Err error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s descriptor: %v: %q", e.Descriptor, e.Err, e.Field)
}

// Unwrap returns the underlying sentinel error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

func missingField(kind, field string) error {
	return &FieldError{Descriptor: kind, Field: field, Err: ErrMissingField}
}

func unrecognizedField(kind, field string) error {
	return &FieldError{Descriptor: kind, Field: field, Err: ErrUnrecognizedField}
}

func invalidField(kind, field string) error {
	return &FieldError{Descriptor: kind, Field: field, Err: ErrInvalidField}
}
