// Package datacalc hosts the statistics application. It consumes number
// announcements and maintains running statistics over them.
package datacalc

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/quayhost/quay/internal/api"
)

// App accumulates statistics over received numbers.
type App struct {
	api.Base

	mu    sync.Mutex
	count int
	sum   int
	min   int
	max   int

	panel *api.TextPanel
	log   zerolog.Logger
}

// New builds the application.
func New(name string, owner api.Owner, args map[string]any) (api.App, error) {
	a := &App{
		Base:  api.NewBase(name, owner),
		panel: api.NewTextPanel("statistics"),
		log:   zerolog.Nop(),
	}
	a.panel.SetLines("not calculated")
	return a, nil
}

// SetLogger replaces the no-op default.
func (a *App) SetLogger(log zerolog.Logger) { a.log = log }

// Frames returns the statistics panel.
func (a *App) Frames() []api.Panel { return []api.Panel{a.panel} }

// Received folds a number announcement into the statistics. Messages
// without a numeric "value" field are ignored.
func (a *App) Received(channel, message string) {
	if !gjson.Valid(message) {
		a.log.Warn().Str("channel", channel).Msg("datacalc: message is not JSON")
		return
	}
	value := gjson.Get(message, "value")
	if !value.Exists() || value.Type != gjson.Number {
		return
	}
	a.record(int(value.Int()))
}

// Stats returns the current count, sum, minimum and maximum.
func (a *App) Stats() (count, sum, min, max int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count, a.sum, a.min, a.max
}

func (a *App) record(v int) {
	a.mu.Lock()
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.count++
	a.sum += v
	count, sum, lo, hi := a.count, a.sum, a.min, a.max
	a.mu.Unlock()

	a.panel.SetLines(
		fmt.Sprintf("count: %d", count),
		fmt.Sprintf("sum:   %d", sum),
		fmt.Sprintf("mean:  %.2f", float64(sum)/float64(count)),
		fmt.Sprintf("range: %d..%d", lo, hi),
	)
}
