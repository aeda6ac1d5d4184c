package host

import "errors"

// Sentinel errors for lifecycle operations.
var (
	// ErrUnknownApp is returned when destroying an application that is not
	// registered.
	ErrUnknownApp = errors.New("unknown application")
)
