// Package dock is the presentation container the host attaches application
// panels to. The host depends only on the Container interface and never
// inspects panel contents.
package dock

import (
	"github.com/google/uuid"

	"github.com/quayhost/quay/internal/api"
	"github.com/quayhost/quay/internal/descriptor"
)

// Handle identifies an attached panel for later detachment.
type Handle struct {
	id uuid.UUID
}

// IsZero reports whether the handle identifies nothing.
func (h Handle) IsZero() bool {
	return h.id == uuid.Nil
}

// NewHandle mints a unique handle. Container implementations call this
// from Attach.
func NewHandle() Handle {
	return Handle{id: uuid.New()}
}

// Container displays panels at dock positions.
type Container interface {
	// Attach shows the panel at the given position under the owning
	// application's name and returns a handle for detachment.
	Attach(app string, panel api.Panel, pos descriptor.Position) (Handle, error)

	// Detach removes a previously attached panel. Unknown handles are
	// ignored.
	Detach(h Handle)
}

// Nop is a Container that displays nothing. It serves headless runs and
// tests.
type Nop struct{}

// NewNop creates a no-op container.
func NewNop() *Nop { return &Nop{} }

// Attach implements Container.
func (*Nop) Attach(app string, panel api.Panel, pos descriptor.Position) (Handle, error) {
	return NewHandle(), nil
}

// Detach implements Container.
func (*Nop) Detach(Handle) {}
