// Package logger hosts the traffic logger application. Every message it
// receives is rendered into its panel, which makes it a convenient window
// onto any channel, the reserved system channel included.
package logger

import (
	"fmt"

	"github.com/quayhost/quay/internal/api"
)

// ClearMessage empties the log when received on any subscribed channel.
const ClearMessage = "clear"

const defaultMaxLines = 500

// App renders channel traffic.
type App struct {
	api.Base

	panel    *api.TextPanel
	maxLines int
}

// New builds the application. The optional "maxLines" argument caps the
// retained log length.
func New(name string, owner api.Owner, args map[string]any) (api.App, error) {
	a := &App{
		Base:     api.NewBase(name, owner),
		panel:    api.NewTextPanel("log"),
		maxLines: defaultMaxLines,
	}
	if v, ok := args["maxLines"].(float64); ok {
		if v < 1 {
			return nil, fmt.Errorf("logger: maxLines must be at least 1, got %v", v)
		}
		a.maxLines = int(v)
	}
	return a, nil
}

// Frames returns the log panel.
func (a *App) Frames() []api.Panel { return []api.Panel{a.panel} }

// Received appends the message to the log, or clears it.
func (a *App) Received(channel, message string) {
	if message == ClearMessage {
		a.panel.SetLines()
		return
	}
	a.panel.Append(fmt.Sprintf("[%s]: %s", channel, message), a.maxLines)
}
