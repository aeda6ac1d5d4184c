// Package host orchestrates application lifetimes: it instantiates
// components from descriptors, wires them to the bus registry, and places
// their panels on the presentation container.
//
// The host and the bus registry together are the only authority over the
// instance and subscription tables. Applications affect membership solely
// through the system-call protocol, which the registry routes back into
// this package.
package host

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quayhost/quay/internal/api"
	"github.com/quayhost/quay/internal/bus"
	"github.com/quayhost/quay/internal/component"
	"github.com/quayhost/quay/internal/descriptor"
	"github.com/quayhost/quay/internal/dock"
)

// instance is one registered application with its presentation state.
type instance struct {
	app     api.App
	desc    descriptor.App
	handles []dock.Handle
}

// Host is the lifecycle manager.
type Host struct {
	mu         sync.Mutex
	registry   *bus.Registry
	components *component.Registry
	container  dock.Container
	log        zerolog.Logger
	instances  map[string]*instance
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(log zerolog.Logger) Option {
	return func(h *Host) {
		h.log = log
	}
}

// New creates a Host bound to the given bus registry, component registry
// and presentation container, and binds itself as the registry's lifecycle
// authority.
func New(registry *bus.Registry, components *component.Registry, container dock.Container, opts ...Option) *Host {
	h := &Host{
		registry:   registry,
		components: components,
		container:  container,
		log:        zerolog.Nop(),
		instances:  make(map[string]*instance),
	}
	for _, opt := range opts {
		opt(h)
	}
	registry.BindLifecycle(h)
	return h
}

// CreateApp resolves the descriptor's component, constructs the instance,
// registers it with the bus for every channel in the descriptor, and
// attaches its panels when the descriptor asks for them.
//
// Resolution and construction failures propagate to the caller: a
// half-registered application would corrupt the subscription invariant, so
// nothing is registered until construction has succeeded.
//
// Creating over an existing name replaces the table entry without
// destroying the prior instance. The stale instance keeps its
// subscriptions and its panels; callers that want the slot clean must
// destroy it first. This mirrors long-standing behavior and is logged as a
// warning.
func (h *Host) CreateApp(name string, desc descriptor.App) error {
	factory, err := h.components.Resolve(desc.Module, desc.ClassName, desc.Path)
	if err != nil {
		return fmt.Errorf("creating application %q: %w", name, err)
	}

	app, err := factory(name, h.registry.Origin(name), constructionArgs(desc.Args))
	if err != nil {
		return fmt.Errorf("creating application %q: %w", name, err)
	}

	if err := h.registry.Attach(app); err != nil {
		return fmt.Errorf("creating application %q: %w", name, err)
	}
	for _, channel := range desc.Buses {
		if err := h.registry.Subscribe(app, channel); err != nil {
			return fmt.Errorf("creating application %q: %w", name, err)
		}
	}

	var handles []dock.Handle
	if desc.Show {
		if !desc.Position.Recognized() && desc.Position != "" {
			h.log.Warn().
				Str("app", name).
				Str("position", string(desc.Position)).
				Msg("unrecognized dock position, using default")
		}
		for _, panel := range app.Frames() {
			handle, err := h.container.Attach(name, panel, desc.Position.OrDefault())
			if err != nil {
				// Presentation failure degrades the instance but leaves
				// the tables consistent; the app still runs headless.
				h.log.Warn().Err(err).Str("app", name).Msg("panel attach failed")
				continue
			}
			handles = append(handles, handle)
		}
	}

	h.mu.Lock()
	if _, exists := h.instances[name]; exists {
		h.log.Warn().
			Str("app", name).
			Msg("replacing existing application entry; prior instance was not destroyed")
	}
	h.instances[name] = &instance{app: app, desc: desc, handles: handles}
	h.mu.Unlock()

	h.log.Info().
		Str("app", name).
		Str("module", desc.Module).
		Str("class", desc.ClassName).
		Strs("buses", desc.Buses).
		Msg("application created")
	return nil
}

// DestroyApp detaches the named application's panels, removes it from
// every subscription set and from the instance table, and releases it. No
// delivery reaches the instance after this returns, including from
// broadcasts already queued.
func (h *Host) DestroyApp(name string) error {
	h.mu.Lock()
	inst, ok := h.instances[name]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("destroying application %q: %w", name, ErrUnknownApp)
	}
	delete(h.instances, name)
	h.mu.Unlock()

	for _, handle := range inst.handles {
		h.container.Detach(handle)
	}
	h.registry.Detach(inst.app)

	if closer, ok := inst.app.(interface{ Close() }); ok {
		closer.Close()
	}

	h.log.Info().Str("app", name).Msg("application destroyed")
	return nil
}

// AppNames returns the names of all registered applications, including
// those whose panels are hidden.
func (h *Host) AppNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.instances))
	for name := range h.instances {
		names = append(names, name)
	}
	return names
}

// Descriptor returns the descriptor an application was created from.
func (h *Host) Descriptor(name string) (descriptor.App, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inst, ok := h.instances[name]
	if !ok {
		return descriptor.App{}, false
	}
	return inst.desc, true
}

// ChannelNames returns the names of all known channels.
func (h *Host) ChannelNames() []string {
	return h.registry.ChannelNames()
}

// SubscriberNames returns the names of a channel's subscribers.
func (h *Host) SubscriberNames(channel string) []string {
	return h.registry.SubscriberNames(channel)
}

// constructionArgs copies args without the reserved keys. Callers
// sometimes include name or owner by mistake; the host always supplies
// those itself.
func constructionArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if k == "name" || k == "owner" {
			continue
		}
		out[k] = v
	}
	return out
}
