package host

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quayhost/quay/internal/api"
	"github.com/quayhost/quay/internal/bus"
	"github.com/quayhost/quay/internal/component"
	"github.com/quayhost/quay/internal/descriptor"
	"github.com/quayhost/quay/internal/dock"
	"github.com/quayhost/quay/internal/setup"
)

type stubApp struct {
	api.Base
	mu       sync.Mutex
	panels   []api.Panel
	received []string
	args     map[string]any
	closed   bool
}

func (a *stubApp) Frames() []api.Panel { return a.panels }

func (a *stubApp) Received(channel, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.received = append(a.received, channel+":"+message)
}

func (a *stubApp) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

func (a *stubApp) messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.received))
	copy(out, a.received)
	return out
}

// fakeContainer records attach and detach calls.
type fakeContainer struct {
	mu       sync.Mutex
	attached map[dock.Handle]string
	next     int
	failNext bool
}

func newFakeContainer() *fakeContainer {
	return &fakeContainer{attached: make(map[dock.Handle]string)}
}

func (c *fakeContainer) Attach(app string, panel api.Panel, pos descriptor.Position) (dock.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		c.failNext = false
		return dock.Handle{}, errors.New("container full")
	}
	h := dock.NewHandle()
	c.attached[h] = app
	c.next++
	return h, nil
}

func (c *fakeContainer) Detach(h dock.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attached, h)
}

func (c *fakeContainer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.attached)
}

func newTestHost(t *testing.T) (*Host, *bus.Registry, *component.Registry, *fakeContainer, *sync.Map) {
	t.Helper()
	reg := bus.NewRegistry()
	comps := component.NewRegistry()
	container := newFakeContainer()

	made := &sync.Map{}
	err := comps.Register("stub", "Widget", func(name string, owner api.Owner, args map[string]any) (api.App, error) {
		app := &stubApp{Base: api.NewBase(name, owner), args: args}
		app.panels = []api.Panel{api.NewTextPanel(name)}
		made.Store(name, app)
		return app, nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	err = comps.Register("stub", "Broken", func(name string, owner api.Owner, args map[string]any) (api.App, error) {
		return nil, errors.New("constructor exploded")
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	h := New(reg, comps, container)
	if err := reg.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		reg.Stop(ctx)
	})
	return h, reg, comps, container, made
}

func widgetDesc(buses ...string) descriptor.App {
	return descriptor.App{
		Module:    "stub",
		ClassName: "Widget",
		Path:      ".",
		Show:      true,
		Buses:     buses,
	}
}

func TestCreateDestroyRoundTrip(t *testing.T) {
	h, _, _, container, _ := newTestHost(t)

	if err := h.CreateApp("w1", widgetDesc("data")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := h.AppNames(); len(got) != 1 || got[0] != "w1" {
		t.Fatalf("app names = %v", got)
	}
	if container.count() != 1 {
		t.Fatalf("panels attached = %d, want 1", container.count())
	}

	if err := h.DestroyApp("w1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if got := h.AppNames(); len(got) != 0 {
		t.Fatalf("app names after destroy = %v", got)
	}
	if container.count() != 0 {
		t.Fatalf("panels after destroy = %d, want 0", container.count())
	}
}

func TestDestroyUnknownApp(t *testing.T) {
	h, _, _, _, _ := newTestHost(t)
	if err := h.DestroyApp("ghost"); !errors.Is(err, ErrUnknownApp) {
		t.Fatalf("err = %v, want ErrUnknownApp", err)
	}
}

func TestDestroyCallsClose(t *testing.T) {
	h, _, _, _, made := newTestHost(t)
	if err := h.CreateApp("w1", widgetDesc()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.DestroyApp("w1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	v, _ := made.Load("w1")
	app := v.(*stubApp)
	app.mu.Lock()
	closed := app.closed
	app.mu.Unlock()
	if !closed {
		t.Fatal("Close was not called on destroy")
	}
}

func TestCreateFailurePropagates(t *testing.T) {
	h, _, _, container, _ := newTestHost(t)
	desc := widgetDesc()
	desc.ClassName = "Broken"
	if err := h.CreateApp("bad", desc); err == nil {
		t.Fatal("expected constructor error")
	}
	if got := h.AppNames(); len(got) != 0 {
		t.Fatalf("failed create left instance table entries: %v", got)
	}
	if container.count() != 0 {
		t.Fatalf("failed create left %d panels attached", container.count())
	}
}

// A second create under the same name replaces the table entry without
// destroying the first instance. The old application keeps its channel
// subscriptions and panels; only DestroyApp cleans up, and it only finds
// the newest instance.
func TestDuplicateNameReplacesWithoutDestroy(t *testing.T) {
	h, reg, _, _, made := newTestHost(t)

	if err := h.CreateApp("twin", widgetDesc("data")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	v, _ := made.Load("twin")
	first := v.(*stubApp)

	if err := h.CreateApp("twin", widgetDesc("data")); err != nil {
		t.Fatalf("second create: %v", err)
	}

	if got := len(reg.SubscriberNames("data")); got != 2 {
		t.Fatalf("subscribers on data = %d, want 2 (old instance leaked)", got)
	}
	if err := reg.Broadcast("data", "ping"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	waitFor(t, func() bool { return len(first.messages()) == 1 })

	if err := h.DestroyApp("twin"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	// The leaked first instance still receives traffic.
	if err := reg.Broadcast("data", "pong"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	waitFor(t, func() bool { return len(first.messages()) == 2 })
}

func TestConstructionArgsStripped(t *testing.T) {
	h, _, _, _, made := newTestHost(t)
	desc := widgetDesc()
	desc.Args = map[string]any{"name": "spoof", "owner": "spoof", "limit": float64(5)}
	if err := h.CreateApp("w1", desc); err != nil {
		t.Fatalf("create: %v", err)
	}
	v, _ := made.Load("w1")
	app := v.(*stubApp)
	if _, ok := app.args["name"]; ok {
		t.Fatal("reserved key name leaked into constructor args")
	}
	if _, ok := app.args["owner"]; ok {
		t.Fatal("reserved key owner leaked into constructor args")
	}
	if app.args["limit"] != float64(5) {
		t.Fatalf("args = %v", app.args)
	}
}

func TestHiddenAppAttachesNoPanels(t *testing.T) {
	h, _, _, container, _ := newTestHost(t)
	desc := widgetDesc()
	desc.Show = false
	if err := h.CreateApp("quiet", desc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if container.count() != 0 {
		t.Fatalf("hidden app attached %d panels", container.count())
	}
}

func TestPanelAttachFailureDegrades(t *testing.T) {
	h, _, _, container, _ := newTestHost(t)
	container.failNext = true
	if err := h.CreateApp("w1", widgetDesc()); err != nil {
		t.Fatalf("create should survive attach failure: %v", err)
	}
	if got := h.AppNames(); len(got) != 1 {
		t.Fatalf("app names = %v", got)
	}
}

// A create command arriving on the reserved channel spawns the named
// application, which then sees ordinary traffic on its subscribed buses.
func TestSystemCreateEndToEnd(t *testing.T) {
	_, reg, _, _, made := newTestHost(t)

	msg, err := bus.CreateMessage("spawned", widgetDesc("data"))
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if err := reg.Broadcast(bus.SystemChannel, msg); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	waitFor(t, func() bool {
		_, ok := made.Load("spawned")
		return ok
	})

	if err := reg.Broadcast("data", "hello"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	v, _ := made.Load("spawned")
	app := v.(*stubApp)
	waitFor(t, func() bool { return len(app.messages()) == 1 })
	if got := app.messages()[0]; got != "data:hello" {
		t.Fatalf("received = %q", got)
	}
}

func TestLoadCreatesInDocumentOrder(t *testing.T) {
	h, reg, _, _, _ := newTestHost(t)
	budget := 2.5
	doc := &setup.Document{
		Buses: []setup.BusEntry{{Name: "data", Descriptor: descriptor.Bus{TimeoutSeconds: &budget}}},
		Apps: []setup.AppEntry{
			{Name: "a", Descriptor: widgetDesc("data")},
			{Name: "b", Descriptor: widgetDesc()},
		},
	}
	if err := h.Load(doc); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := h.AppNames(); len(got) != 2 {
		t.Fatalf("app names = %v", got)
	}
	found := false
	for _, ch := range reg.ChannelNames() {
		if ch == "data" {
			found = true
		}
	}
	if !found {
		t.Fatalf("configured channel missing: %v", reg.ChannelNames())
	}
}

func TestLoadContinuesPastFailure(t *testing.T) {
	h, _, _, _, _ := newTestHost(t)
	bad := widgetDesc()
	bad.ClassName = "Broken"
	doc := &setup.Document{
		Apps: []setup.AppEntry{
			{Name: "bad", Descriptor: bad},
			{Name: "good", Descriptor: widgetDesc()},
		},
	}
	if err := h.Load(doc); err == nil {
		t.Fatal("expected aggregate error")
	}
	if got := h.AppNames(); len(got) != 1 || got[0] != "good" {
		t.Fatalf("app names = %v", got)
	}
}

func TestReconcileCreatesDestroysAndRecreates(t *testing.T) {
	h, _, _, _, made := newTestHost(t)

	doc := &setup.Document{Apps: []setup.AppEntry{
		{Name: "keep", Descriptor: widgetDesc("data")},
		{Name: "drop", Descriptor: widgetDesc()},
	}}
	if err := h.Load(doc); err != nil {
		t.Fatalf("load: %v", err)
	}
	v, _ := made.Load("keep")
	original := v.(*stubApp)

	changed := widgetDesc("data", "extra")
	next := &setup.Document{Apps: []setup.AppEntry{
		{Name: "keep", Descriptor: changed},
		{Name: "new", Descriptor: widgetDesc()},
	}}
	if err := h.Reconcile(next); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	names := h.AppNames()
	if len(names) != 2 {
		t.Fatalf("app names = %v", names)
	}
	for _, n := range names {
		if n == "drop" {
			t.Fatal("removed app survived reconcile")
		}
	}
	v, _ = made.Load("keep")
	if v.(*stubApp) == original {
		t.Fatal("changed descriptor did not recreate the instance")
	}
	if desc, _ := h.Descriptor("keep"); len(desc.Buses) != 2 {
		t.Fatalf("descriptor not updated: %+v", desc)
	}
}

func TestReconcileLeavesUnchangedAppsAlone(t *testing.T) {
	h, _, _, _, made := newTestHost(t)
	doc := &setup.Document{Apps: []setup.AppEntry{{Name: "w", Descriptor: widgetDesc("data")}}}
	if err := h.Load(doc); err != nil {
		t.Fatalf("load: %v", err)
	}
	v, _ := made.Load("w")
	before := v.(*stubApp)

	if err := h.Reconcile(doc); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	v, _ = made.Load("w")
	if v.(*stubApp) != before {
		t.Fatal("unchanged app was recreated")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
