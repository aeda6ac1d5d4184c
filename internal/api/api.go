// Package api defines the surface an application must expose to be hosted
// by quay, and the capabilities the host grants it in return.
package api

// Panel is an opaque visual unit owned by an application. The host never
// inspects panel contents; it only hands panels to the presentation
// container for display.
type Panel interface {
	// Title returns the panel's display title.
	Title() string

	// Lines returns the panel's current content, one string per row.
	Lines() []string
}

// App is a hosted application instance.
type App interface {
	// Name returns the unique name this instance was registered under.
	Name() string

	// Frames returns the panels owned by this application. The host calls
	// this once per show-lifecycle; the returned slice must be finite.
	Frames() []Panel

	// Received delivers a broadcast message from a channel the application
	// subscribes to.
	Received(channel, message string)
}

// Owner is the broadcast-origination capability granted to an application
// by its host. Messages are never delivered on the caller's stack; they
// are queued and dispatched in FIFO order by the host's pump.
type Owner interface {
	// Broadcast requests delivery of message to every subscriber of channel.
	Broadcast(channel, message string)
}

// Factory constructs an application instance. name is the unique registry
// key, owner is the origination capability, and args are the optional named
// construction arguments from the descriptor (never containing "name" or
// "owner" keys; the host strips those).
type Factory func(name string, owner Owner, args map[string]any) (App, error)
