// Package poller hosts the tick broadcaster application. It periodically
// broadcasts a generate trigger so downstream applications produce data
// without user interaction.
package poller

import (
	"fmt"
	"sync"
	"time"

	"github.com/quayhost/quay/internal/api"
)

// TickChannel carries the periodic trigger.
const TickChannel = "tickbus"

// TickMessage is the broadcast payload.
const TickMessage = "generate"

const defaultPeriod = time.Second

// App is the tick broadcaster.
type App struct {
	api.Base

	mu    sync.Mutex
	count int

	panel  *api.TextPanel
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// New builds the application and starts ticking. The optional
// "periodSeconds" argument sets the interval (default one second).
func New(name string, owner api.Owner, args map[string]any) (api.App, error) {
	period := defaultPeriod
	if v, ok := args["periodSeconds"].(float64); ok {
		if v <= 0 {
			return nil, fmt.Errorf("poller: periodSeconds must be positive, got %v", v)
		}
		period = time.Duration(v * float64(time.Second))
	}

	a := &App{
		Base:   api.NewBase(name, owner),
		panel:  api.NewTextPanel("poller"),
		ticker: time.NewTicker(period),
		done:   make(chan struct{}),
	}
	a.panel.SetLines("not initiated")
	go a.run()
	return a, nil
}

// Frames returns the status panel.
func (a *App) Frames() []api.Panel { return []api.Panel{a.panel} }

// Close stops the ticker goroutine.
func (a *App) Close() {
	a.once.Do(func() {
		a.ticker.Stop()
		close(a.done)
	})
}

func (a *App) run() {
	for {
		select {
		case <-a.done:
			return
		case <-a.ticker.C:
			a.tick()
		}
	}
}

func (a *App) tick() {
	a.mu.Lock()
	a.count++
	count := a.count
	a.mu.Unlock()

	a.Broadcast(TickChannel, TickMessage)
	a.panel.SetLines(
		fmt.Sprintf("polled count: %d", count),
		fmt.Sprintf("last tick: %s", time.Now().Format(time.TimeOnly)),
	)
}
