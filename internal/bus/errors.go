package bus

import "errors"

// Sentinel errors for the bus registry and its pump.
var (
	// ErrNotRunning is returned when a broadcast is requested before Start
	// or after Stop.
	ErrNotRunning = errors.New("bus is not running")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("bus is already running")

	// ErrQueueFull is returned when the dispatch queue cannot accept
	// another broadcast.
	ErrQueueFull = errors.New("dispatch queue is full")

	// ErrNilApp is returned when a nil application is attached or
	// subscribed.
	ErrNilApp = errors.New("application cannot be nil")

	// ErrNoLifecycle is returned when a system call arrives but no
	// lifecycle authority is bound.
	ErrNoLifecycle = errors.New("no lifecycle bound to the bus")
)
