// Package bus implements the broadcast registry: named channels, their
// subscriber sets, and the system-call protocol through which the bus
// controls its own membership at runtime.
//
// All delivery happens on a single dispatch goroutine fed by a FIFO queue.
// A broadcast never runs nested inside another broadcast, which is what
// makes it safe for a message handler to create or destroy applications.
package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayhost/quay/internal/api"
	"github.com/quayhost/quay/internal/descriptor"
)

// SystemChannel is the reserved channel name. A broadcast on it is decoded
// as a lifecycle command in addition to ordinary fan-out, so subscribers
// may observe system-call traffic as plain message content.
const SystemChannel = "quay"

// Lifecycle is the authority the bus invokes to execute system calls. It
// is implemented by the host.
type Lifecycle interface {
	CreateApp(name string, desc descriptor.App) error
	DestroyApp(name string) error
}

// Registry maps channel names to subscriber sets and owns the broadcast
// algorithm.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string]map[api.App]struct{}
	live        map[api.App]struct{}
	channels    map[string]descriptor.Bus
	lifecycle   Lifecycle

	pump *pump
	log  zerolog.Logger

	// Stats
	broadcasts atomic.Uint64
	deliveries atomic.Uint64
	syscalls   atomic.Uint64
	slow       atomic.Uint64
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(log zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = log
	}
}

// WithQueueSize bounds the dispatch queue.
func WithQueueSize(size int) RegistryOption {
	return func(r *Registry) {
		r.pump = newPump(size)
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		subscribers: make(map[string]map[api.App]struct{}),
		live:        make(map[api.App]struct{}),
		channels:    make(map[string]descriptor.Bus),
		pump:        newPump(0),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BindLifecycle sets the authority that executes system calls. The host
// binds itself here after construction; the two components reference each
// other but the host alone owns instance lifetimes.
func (r *Registry) BindLifecycle(lc Lifecycle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifecycle = lc
}

// Start launches the dispatch goroutine.
func (r *Registry) Start() error {
	return r.pump.Start()
}

// Stop drains pending broadcasts and stops dispatch.
func (r *Registry) Stop(ctx context.Context) error {
	return r.pump.Stop(ctx)
}

// Configure records the descriptor for a channel. The channel entry is
// created if absent so configured channels are listed even with zero
// subscribers.
func (r *Registry) Configure(channel string, desc descriptor.Bus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.channels[channel] = desc
	if _, ok := r.subscribers[channel]; !ok {
		r.subscribers[channel] = make(map[api.App]struct{})
	}
}

// Attach marks app as a live delivery target. Apps must be attached before
// they are subscribed anywhere.
func (r *Registry) Attach(app api.App) error {
	if app == nil {
		return ErrNilApp
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[app] = struct{}{}
	return nil
}

// Detach removes app from every subscriber set and stops treating it as a
// live target. No delivery reaches the app after Detach returns, even when
// a broadcast snapshot containing it is still queued.
func (r *Registry) Detach(app api.App) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.live, app)
	for _, set := range r.subscribers {
		delete(set, app)
	}
}

// Subscribe adds app to the channel's subscriber set, creating the entry
// lazily. Subscribing twice is a no-op: sets do not duplicate delivery.
func (r *Registry) Subscribe(app api.App, channel string) error {
	if app == nil {
		return ErrNilApp
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subscribers[channel]
	if !ok {
		set = make(map[api.App]struct{})
		r.subscribers[channel] = set
	}
	set[app] = struct{}{}
	return nil
}

// Unsubscribe removes app from the channel's subscriber set. It reports
// whether the app was subscribed. The channel entry survives empty.
func (r *Registry) Unsubscribe(app api.App, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subscribers[channel]
	if !ok {
		return false
	}
	if _, ok := set[app]; !ok {
		return false
	}
	delete(set, app)
	return true
}

// ChannelNames returns the names of all known channels, configured or
// subscribed, in no particular order.
func (r *Registry) ChannelNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.subscribers))
	for name := range r.subscribers {
		names = append(names, name)
	}
	return names
}

// SubscriberNames returns the names of the channel's current subscribers.
// A channel with no subscribers, or an unknown channel, yields nil.
func (r *Registry) SubscriberNames(channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.subscribers[channel]
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for app := range set {
		names = append(names, app.Name())
	}
	return names
}

// Broadcast schedules delivery of message to every subscriber of channel.
// The message is delivered on the dispatch goroutine strictly after every
// previously scheduled broadcast; it is never delivered on the caller's
// stack.
func (r *Registry) Broadcast(channel, message string) error {
	return r.pump.Enqueue(func() {
		r.deliver(channel, message)
	})
}

// Origin returns the broadcast-origination capability for a named
// application. Dropped broadcasts are logged against the originator rather
// than surfaced to it; a full queue is a host condition, not an
// application fault.
func (r *Registry) Origin(name string) api.Owner {
	return &origin{registry: r, name: name}
}

type origin struct {
	registry *Registry
	name     string
}

func (o *origin) Broadcast(channel, message string) {
	if err := o.registry.Broadcast(channel, message); err != nil {
		o.registry.log.Warn().
			Err(err).
			Str("app", o.name).
			Str("channel", channel).
			Msg("broadcast dropped")
	}
}

// deliver runs on the dispatch goroutine.
//
// System-call actions execute before fan-out, so an application created by
// the message observes the raw command text if it subscribes to the
// reserved channel; the snapshot is taken after the actions run.
func (r *Registry) deliver(channel, message string) {
	r.broadcasts.Add(1)

	if channel == SystemChannel {
		r.system(message)
	}

	snapshot, budget := r.snapshot(channel)
	if len(snapshot) == 0 {
		return
	}

	for _, app := range snapshot {
		// A handler earlier in this fan-out may have destroyed this
		// target; check liveness immediately before invoking.
		if !r.alive(app) {
			continue
		}

		start := time.Now()
		app.Received(channel, message)
		elapsed := time.Since(start)
		r.deliveries.Add(1)

		if budget > 0 && elapsed > budget {
			r.slow.Add(1)
			r.log.Warn().
				Str("channel", channel).
				Str("app", app.Name()).
				Dur("elapsed", elapsed).
				Dur("budget", budget).
				Msg("slow delivery")
		}
	}
}

// snapshot copies the channel's subscriber set and returns the channel's
// delivery time budget, zero when unconfigured.
func (r *Registry) snapshot(channel string) ([]api.App, time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var budget time.Duration
	if desc, ok := r.channels[channel]; ok && desc.TimeoutSeconds != nil {
		budget = time.Duration(*desc.TimeoutSeconds * float64(time.Second))
	}

	set := r.subscribers[channel]
	if len(set) == 0 {
		return nil, budget
	}
	apps := make([]api.App, 0, len(set))
	for app := range set {
		apps = append(apps, app)
	}
	return apps, budget
}

func (r *Registry) alive(app api.App) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.live[app]
	return ok
}

// Stats reports registry counters.
type Stats struct {
	Broadcasts     uint64
	Deliveries     uint64
	Syscalls       uint64
	SlowDeliveries uint64
	QueueDepth     int
}

// Stats returns current counters.
func (r *Registry) Stats() Stats {
	return Stats{
		Broadcasts:     r.broadcasts.Load(),
		Deliveries:     r.deliveries.Load(),
		Syscalls:       r.syscalls.Load(),
		SlowDeliveries: r.slow.Load(),
		QueueDepth:     r.pump.Depth(),
	}
}
